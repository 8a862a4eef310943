package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/albumsync/internal/status"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#3C9DD0", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title       lipgloss.Style
	ok          lipgloss.Style
	err         lipgloss.Style
	syncing     lipgloss.Style
	downloading lipgloss.Style
	help        lipgloss.Style
}

func NewPalette(title, ok, err, syncing, downloading, help string) *Palette {
	return &Palette{
		title:       NewBold(title).MarginBottom(1),
		ok:          NewBold(ok),
		err:         NewBold(err),
		syncing:     NewStyle(syncing),
		downloading: NewStyle(downloading),
		help:        NewEm(help),
	}
}

// State renders text in the color of a live track state.
func (p *Palette) State(state status.State, text string) string {
	switch state {
	case status.Syncing:
		return p.syncing.Render(text)
	case status.Downloading:
		return p.downloading.Render(text)
	case status.Synced:
		return p.ok.Render(text)
	default:
		return p.help.Render(text)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
