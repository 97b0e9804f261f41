// Package tui holds the interactive terminal models: the destructive
// change consent prompt and the project setup form.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// styles
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dangerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// ConfirmModel is the bubbletea model for the destructive change
// consent prompt. Denial is the default: anything other than an
// explicit yes declines.
type ConfirmModel struct {
	title     string
	body      string
	confirmed bool
	done      bool
	width     int
}

// NewConfirmModel creates a consent prompt showing body above the
// yes/no question.
func NewConfirmModel(title, body string) ConfirmModel {
	return ConfirmModel{
		title: title,
		body:  body,
		width: 80,
	}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			m.confirmed = true
			m.done = true
			return m, tea.Quit
		case "n", "N", "q", "esc", "enter", "ctrl+c":
			m.confirmed = false
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(dangerStyle.Render(m.title))
	b.WriteString("\n\n")

	for _, line := range strings.Split(strings.TrimRight(m.body, "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(errStyle.Render("  These changes can lose data and cannot be undone by a rollback."))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Apply anyway? %s\n", dimStyle.Render("[y/N]")))

	return b.String()
}

// Confirmed returns true when the operator explicitly consented.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// Done returns true when the model is finished.
func (m ConfirmModel) Done() bool {
	return m.done
}

// Confirm runs the consent prompt on the terminal and returns the
// operator's answer.
func Confirm(title, body string) (bool, error) {
	p := tea.NewProgram(NewConfirmModel(title, body))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running confirm prompt: %w", err)
	}
	m, ok := final.(ConfirmModel)
	if !ok {
		return false, fmt.Errorf("unexpected model type %T", final)
	}
	return m.Confirmed(), nil
}
