package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/schemaforge/schemaforge/internal/config"
)

// field indexes
const (
	fieldHost = iota
	fieldPort
	fieldDatabase
	fieldUsername
	fieldPassword
	fieldPath
	fieldCount
)

var dialects = []string{"postgresql", "mysql", "sqlite"}

// SetupModel is the bubbletea model for the project setup form run by
// the init command.
type SetupModel struct {
	inputs    []textinput.Model
	focused   int
	dialect   int // index into dialects
	cancelled bool
	done      bool
	width     int
}

// NewSetupModel creates the setup form with sensible placeholders.
func NewSetupModel() SetupModel {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldHost] = textinput.New()
	inputs[fieldHost].Placeholder = "localhost"
	inputs[fieldHost].CharLimit = 256
	inputs[fieldHost].Focus()

	inputs[fieldPort] = textinput.New()
	inputs[fieldPort].Placeholder = "5432"
	inputs[fieldPort].CharLimit = 5

	inputs[fieldDatabase] = textinput.New()
	inputs[fieldDatabase].Placeholder = "mydb"
	inputs[fieldDatabase].CharLimit = 128

	inputs[fieldUsername] = textinput.New()
	inputs[fieldUsername].Placeholder = "postgres"
	inputs[fieldUsername].CharLimit = 128

	inputs[fieldPassword] = textinput.New()
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '*'
	inputs[fieldPassword].CharLimit = 256

	inputs[fieldPath] = textinput.New()
	inputs[fieldPath].Placeholder = "app.db"
	inputs[fieldPath].CharLimit = 256

	return SetupModel{
		inputs: inputs,
		width:  80,
	}
}

func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			m.done = true
			return m, tea.Quit

		case "ctrl+t":
			m.dialect = (m.dialect + 1) % len(dialects)
			m.focused = m.firstField()
			return m, m.updateFocus()

		case "tab", "down":
			m.focused = m.nextField(m.focused)
			return m, m.updateFocus()

		case "shift+tab", "up":
			m.focused = m.prevField(m.focused)
			return m, m.updateFocus()

		case "enter":
			if m.focused == m.lastField() {
				m.done = true
				return m, tea.Quit
			}
			m.focused = m.nextField(m.focused)
			return m, m.updateFocus()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *SetupModel) updateFocus() tea.Cmd {
	cmds := make([]tea.Cmd, fieldCount)
	for i := 0; i < fieldCount; i++ {
		if i == m.focused {
			cmds[i] = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

// sqlite uses only the path field; the server dialects use everything
// except it.
func (m SetupModel) isSQLite() bool { return dialects[m.dialect] == "sqlite" }

func (m SetupModel) firstField() int {
	if m.isSQLite() {
		return fieldPath
	}
	return fieldHost
}

func (m SetupModel) lastField() int {
	if m.isSQLite() {
		return fieldPath
	}
	return fieldPassword
}

func (m SetupModel) nextField(i int) int {
	if m.isSQLite() {
		return fieldPath
	}
	i++
	if i > fieldPassword {
		i = fieldHost
	}
	return i
}

func (m SetupModel) prevField(i int) int {
	if m.isSQLite() {
		return fieldPath
	}
	i--
	if i < fieldHost {
		i = fieldPassword
	}
	return i
}

func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Project Setup"))
	b.WriteString("\n\n")

	var picks []string
	for i, d := range dialects {
		marker := "○"
		if i == m.dialect {
			marker = "●"
		}
		picks = append(picks, fmt.Sprintf("%s %s", marker, d))
	}
	b.WriteString(fmt.Sprintf("  Dialect: %s  (ctrl+t to toggle)\n\n", strings.Join(picks, "  ")))

	if m.isSQLite() {
		b.WriteString(m.renderField("Path", fieldPath))
	} else {
		b.WriteString(m.renderField("Host", fieldHost))
		b.WriteString(m.renderField("Port", fieldPort))
		b.WriteString(m.renderField("Database", fieldDatabase))
		b.WriteString(m.renderField("Username", fieldUsername))
		b.WriteString(m.renderField("Password", fieldPassword))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  Press Enter on the last field to finish • tab/shift-tab to navigate • esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m SetupModel) renderField(label string, i int) string {
	cursor := "  "
	if i == m.focused {
		cursor = highlightStyle.Render("> ")
	}
	return cursor + dimStyle.Render(fmt.Sprintf("%-10s ", label)) + m.inputs[i].View() + "\n"
}

// Done returns true when the form is finished.
func (m SetupModel) Done() bool { return m.done }

// Cancelled returns true if the user aborted the form.
func (m SetupModel) Cancelled() bool { return m.cancelled }

// Config builds the project configuration from the form values.
func (m SetupModel) Config() *config.Config {
	cfg := &config.Config{
		Version: config.CurrentVersion,
		Dialect: dialects[m.dialect],
	}

	if m.isSQLite() {
		cfg.Database.Path = m.inputs[fieldPath].Value()
		if cfg.Database.Path == "" {
			cfg.Database.Path = "app.db"
		}
		return cfg
	}

	cfg.Database.Host = m.inputs[fieldHost].Value()
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}

	port := 5432
	if dialects[m.dialect] == "mysql" {
		port = 3306
	}
	if v := m.inputs[fieldPort].Value(); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	cfg.Database.Port = port

	cfg.Database.Database = m.inputs[fieldDatabase].Value()
	cfg.Database.Username = m.inputs[fieldUsername].Value()
	cfg.Database.Password = m.inputs[fieldPassword].Value()
	return cfg
}

// RunSetup runs the setup form and returns the resulting configuration,
// or nil when the user cancelled.
func RunSetup() (*config.Config, error) {
	p := tea.NewProgram(NewSetupModel())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running setup form: %w", err)
	}
	m, ok := final.(SetupModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	if m.Cancelled() {
		return nil, nil
	}
	return m.Config(), nil
}
