package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/status"
	"github.com/desertthunder/albumsync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgStatusEvent MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
)

type syncResult struct {
	summary *models.RunSummary
	err     error
}

// statusEventMsg is the constructor for [MsgStatusEvent]
func statusEventMsg(ev status.Event) Msg {
	return Msg{kind: MsgStatusEvent, data: ev}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// SyncComplete is sent to the program once [tasks.AlbumEngine.SyncAlbum] returns.
func SyncComplete(summary *models.RunSummary, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncResult{summary: summary, err: err}}
}
