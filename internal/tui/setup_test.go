package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSetupModel_DefaultsPostgres(t *testing.T) {
	m := NewSetupModel()
	cfg := m.Config()

	if cfg.Dialect != "postgresql" {
		t.Errorf("dialect = %q", cfg.Dialect)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("defaults = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
}

func TestSetupModel_ToggleToSQLite(t *testing.T) {
	m := NewSetupModel()

	var result tea.Model = m
	result, _ = result.(SetupModel).Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	result, _ = result.(SetupModel).Update(tea.KeyMsg{Type: tea.KeyCtrlT})

	sm := result.(SetupModel)
	cfg := sm.Config()
	if cfg.Dialect != "sqlite" {
		t.Fatalf("dialect after two toggles = %q", cfg.Dialect)
	}
	if cfg.Database.Path != "app.db" {
		t.Errorf("sqlite path default = %q", cfg.Database.Path)
	}
	if cfg.Database.Host != "" {
		t.Errorf("sqlite config should not carry a host, got %q", cfg.Database.Host)
	}
}

func TestSetupModel_MySQLPortDefault(t *testing.T) {
	m := NewSetupModel()

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	sm := result.(SetupModel)
	if cfg := sm.Config(); cfg.Dialect != "mysql" || cfg.Database.Port != 3306 {
		t.Errorf("mysql config = %q port %d", cfg.Dialect, cfg.Database.Port)
	}
}

func TestSetupModel_EscapeCancels(t *testing.T) {
	m := NewSetupModel()

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	sm := result.(SetupModel)
	if !sm.Done() || !sm.Cancelled() {
		t.Error("esc should cancel the form")
	}
}

func TestSetupModel_ViewListsDialects(t *testing.T) {
	m := NewSetupModel()
	v := m.View()
	for _, d := range []string{"postgresql", "mysql", "sqlite"} {
		if !strings.Contains(v, d) {
			t.Errorf("view missing dialect %s", d)
		}
	}
	if !strings.Contains(v, "Host") {
		t.Error("postgres form should show Host field")
	}
}
