package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/licenselab/packscan/metrics"
)

// MetricsModel is a Bubble Tea model for service counters.
type MetricsModel struct {
	data     any
	width    int
	height   int
	quitting bool
}

// NewMetricsModel creates a new metrics model.
func NewMetricsModel(data any) MetricsModel {
	return MetricsModel{data: data}
}

// Init implements tea.Model.
func (m MetricsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m MetricsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m MetricsModel) View() string {
	if m.quitting {
		return ""
	}

	snap, ok := m.data.(*metrics.Snapshot)
	if !ok {
		return "Invalid data type for metrics view"
	}

	content := m.renderMetrics(snap)
	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m MetricsModel) renderMetrics(snap *metrics.Snapshot) string {
	tasks := []string{
		statBox("Started", snap.TasksStarted, highlightColor),
		statBox("Completed", snap.TasksCompleted, successColor),
		statBox("Failed", snap.TasksFailed, errorColor),
	}
	scans := []string{
		statBox("Archives", snap.ArchivesScanned, highlightColor),
		statBox("Nested", snap.NestedArchives, highlightColor),
		statBox("Bundles", snap.Bundles, highlightColor),
		statBox("Faulty Names", snap.FaultyNames, warningColor),
	}
	backends := []string{
		statBox("Downloads", snap.RemoteDownloads, highlightColor),
		statBox("Upserts", snap.StoreUpserts, highlightColor),
	}

	return joinFields(
		TitleStyle.Render("Service Metrics"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, tasks...),
		lipgloss.JoinHorizontal(lipgloss.Top, scans...),
		lipgloss.JoinHorizontal(lipgloss.Top, backends...),
	)
}

// RunMetricsTUI runs the metrics TUI.
func RunMetricsTUI(data any) error {
	model := NewMetricsModel(data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
