package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/licenselab/packscan/types"
)

// pollInterval is the delay between task snapshot fetches.
const pollInterval = time.Second

// FetchFunc retrieves the current snapshot of the watched task.
type FetchFunc func(ctx context.Context) (*types.TaskSnapshot, error)

// snapMsg carries one poll result into the model.
type snapMsg struct {
	snap *types.TaskSnapshot
	err  error
}

// WatchModel is a Bubble Tea model that follows a task to a terminal state.
type WatchModel struct {
	fetch    FetchFunc
	spinner  spinner.Model
	snap     *types.TaskSnapshot
	err      error
	quitting bool
}

// NewWatchModel creates a watch model polling through fetch.
func NewWatchModel(fetch FetchFunc) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WarningStyle
	return WatchModel{fetch: fetch, spinner: sp}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, poll(m.fetch, 0))
}

// poll schedules one fetch after the given delay.
func poll(fetch FetchFunc, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval*5)
		defer cancel()
		snap, err := fetch(ctx)
		return snapMsg{snap: snap, err: err}
	})
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case snapMsg:
		m.snap, m.err = msg.snap, msg.err
		if m.err != nil {
			return m, tea.Quit
		}
		if m.snap.Status.IsTerminal() {
			return m, tea.Quit
		}
		return m, poll(m.fetch, pollInterval)

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return ErrorStyle.Render("watch failed: "+m.err.Error()) + "\n"
	}
	if m.snap == nil {
		return m.spinner.View() + " waiting for task...\n"
	}

	content := renderTaskSnapshot(m.snap)
	if !m.snap.Status.IsTerminal() {
		content += "\n\n" + m.spinner.View() + " working..."
	}
	help := HelpStyle.Render("Press q or Ctrl+C to stop watching")
	return content + "\n" + help
}

// Err returns the fetch error that ended the watch, if any.
func (m WatchModel) Err() error { return m.err }

// RunWatchTUI follows a task until it reaches a terminal state or the user
// quits. The final snapshot error, if any, is returned.
func RunWatchTUI(fetch FetchFunc) error {
	p := tea.NewProgram(NewWatchModel(fetch))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(WatchModel); ok {
		return m.Err()
	}
	return nil
}
