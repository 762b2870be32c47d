package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/licenselab/packscan/types"
)

// TaskModel is a Bubble Tea model for a single task snapshot.
type TaskModel struct {
	data     any
	width    int
	height   int
	quitting bool
}

// NewTaskModel creates a new task model.
func NewTaskModel(data any) TaskModel {
	return TaskModel{data: data}
}

// Init implements tea.Model.
func (m TaskModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TaskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m TaskModel) View() string {
	if m.quitting {
		return ""
	}

	snap, ok := m.data.(*types.TaskSnapshot)
	if !ok {
		return "Invalid data type for task view"
	}

	content := renderTaskSnapshot(snap)
	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func renderTaskSnapshot(snap *types.TaskSnapshot) string {
	lines := []string{
		TitleStyle.Render("Task: " + snap.PackName),
		"",
		field("Requested By", snap.Username),
		field("Step", snap.Step.String()),
		fmt.Sprintf("%s %s",
			LabelStyle.Render("Status:"),
			StateStyle(string(snap.Status)).Render(string(snap.Status))),
	}
	if snap.Message != "" {
		lines = append(lines, field("Message", snap.Message))
	}

	if snap.Data != nil {
		boxes := []string{
			statBox("Clean", int64(len(snap.Data.Clean)), successColor),
			statBox("Faulty", int64(len(snap.Data.Faulty)), errorColor),
			statBox("Components", int64(len(snap.Data.MissingComponent)), warningColor),
			statBox("Libraries", int64(len(snap.Data.MissingLibrary)), warningColor),
		}
		lines = append(lines, "", lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	return joinFields(lines...)
}

// RunTaskTUI runs the task TUI.
func RunTaskTUI(data any) error {
	model := NewTaskModel(data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
