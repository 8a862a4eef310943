package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/status"
	"github.com/desertthunder/albumsync/internal/tasks"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	maxBarWidth   = 60
)

// Model is the status view of one album sync.
type Model struct {
	title   string
	tracks  []models.CanonicalTrack
	index   map[string]int
	states  map[string]status.State
	results map[string]models.TrackResult

	events  <-chan status.Event
	updates <-chan tasks.ProgressUpdate

	progress tasks.ProgressUpdate
	summary  *models.RunSummary
	err      error
	done     bool

	width   int
	height  int
	list    list.Model
	bar     progress.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a status view for tracks. events is usually a [status.Broadcaster]
// subscription and updates the progress channel passed to the engine; either may be nil.
func NewModel(title string, tracks []models.CanonicalTrack, events <-chan status.Event, updates <-chan tasks.ProgressUpdate) *Model {
	m := &Model{
		title:   title,
		tracks:  tracks,
		index:   make(map[string]int, len(tracks)),
		states:  make(map[string]status.State),
		results: make(map[string]models.TrackResult),
		events:  events,
		updates: updates,
		width:   defaultWidth,
		height:  defaultHeight,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.syncing)),
		help:    help.New(),
		keys:    newKeyMap(),
	}

	items := make([]list.Item, len(tracks))
	for i, tr := range tracks {
		m.index[tr.ID] = i
		items[i] = trackItem{track: tr}
	}
	m.list = list.New(items, list.NewDefaultDelegate(), defaultWidth, defaultHeight-8)
	m.list.Title = title
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(false)
	m.list.SetShowHelp(false)
	return m
}

// Init starts the spinner and both channel readers.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events), waitForProgress(m.updates))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, max(msg.Height-8, 4))
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handle(msg)
	}

	return m, nil
}

func (m *Model) handle(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStatusEvent:
		ev := msg.data.(status.Event)
		if ev.State == status.None {
			delete(m.states, ev.TrackID)
		} else {
			m.states[ev.TrackID] = ev.State
		}
		return m, tea.Batch(m.refresh(ev.TrackID), waitForEvent(m.events))

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		var cmd tea.Cmd
		if res, ok := update.Data.(models.TrackResult); ok {
			m.results[res.TrackID] = res
			cmd = m.refresh(res.TrackID)
		}
		return m, tea.Batch(cmd, waitForProgress(m.updates))

	case MsgSyncComplete:
		res := msg.data.(syncResult)
		m.done = true
		m.summary = res.summary
		m.err = res.err

		var cmds []tea.Cmd
		if res.summary != nil {
			for _, tr := range res.summary.Tracks {
				m.results[tr.TrackID] = tr
				cmds = append(cmds, m.refresh(tr.TrackID))
			}
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// refresh rebuilds the list item of trackID from the current state.
func (m *Model) refresh(trackID string) tea.Cmd {
	i, ok := m.index[trackID]
	if !ok {
		return nil
	}
	item := trackItem{track: m.tracks[i], state: m.states[trackID]}
	if res, ok := m.results[trackID]; ok {
		item.result = &res
	}
	return m.list.SetItem(i, item)
}

// Counter returns the tally shown under the progress bar.
func (m *Model) Counter() tasks.Counter {
	if m.summary != nil {
		return tasks.Counter{Synced: m.summary.Synced(), Failed: m.summary.Failed, Total: m.summary.Total}
	}
	c := m.progress.Counter
	if c.Total == 0 {
		c.Total = len(m.tracks)
	}
	return c
}

// Percent is the fraction of tracks that reached a terminal state.
func (m *Model) Percent() float64 {
	c := m.Counter()
	if c.Total == 0 {
		return 0
	}
	return float64(c.Done()) / float64(c.Total)
}

// View renders the header, progress bar, track list and footer.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Syncing " + m.title))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n")

	c := m.Counter()
	fmt.Fprintf(&b, "%s  %s  %s\n",
		styles.ok.Render(fmt.Sprintf("%d synced", c.Synced)),
		styles.err.Render(fmt.Sprintf("%d failed", c.Failed)),
		styles.help.Render(fmt.Sprintf("%d total", c.Total)),
	)
	fmt.Fprintf(&b, "%s %s %s\n\n",
		styles.State(status.Syncing, fmt.Sprintf("%d syncing", m.count(status.Syncing))),
		styles.State(status.Downloading, fmt.Sprintf("%d downloading", m.count(status.Downloading))),
		styles.State(status.Synced, fmt.Sprintf("%d live", m.count(status.Synced))),
	)

	b.WriteString(m.list.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)))
	case m.summary != nil && m.summary.Status == models.RunComplete:
		b.WriteString(styles.ok.Render("✓ " + m.summary.Message))
	case m.summary != nil:
		b.WriteString(styles.err.Render("✗ " + m.summary.Message))
	default:
		b.WriteString(m.spinner.View() + " " + m.progress.Message)
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) count(state status.State) int {
	n := 0
	for _, s := range m.states {
		if s == state {
			n++
		}
	}
	return n
}

func waitForEvent(events <-chan status.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return statusEventMsg(ev)
	}
}

func waitForProgress(updates <-chan tasks.ProgressUpdate) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}
