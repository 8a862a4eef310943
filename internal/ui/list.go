package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/status"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.CanonicalTrack] with its live state to implement [list.Item].
type trackItem struct {
	track  models.CanonicalTrack
	state  status.State
	result *models.TrackResult
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return fmt.Sprintf("%2d. %s", i.track.Position, i.track.Title) }

func (i trackItem) Description() string {
	if i.result != nil {
		switch i.result.Status {
		case models.TrackStatusSynced:
			return styles.ok.Render("synced") + styles.help.Render(" via "+string(i.result.Source))
		case models.TrackStatusFailed:
			return styles.err.Render("failed") + styles.help.Render(" "+i.result.Error)
		}
	}
	if i.state == status.None {
		return styles.help.Render("pending")
	}
	return styles.State(i.state, i.state.String())
}
