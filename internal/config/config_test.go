package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemaforge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: 1
dialect: postgresql
database:
  host: localhost
  port: 5432
  database: app
  username: app
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dialect != "postgresql" {
		t.Errorf("Dialect = %q", cfg.Dialect)
	}
	if cfg.Schema.File != "schema.yaml" {
		t.Errorf("Schema.File = %q", cfg.Schema.File)
	}
	if cfg.Schema.MigrationsDir != "migrations" {
		t.Errorf("MigrationsDir = %q", cfg.Schema.MigrationsDir)
	}
	if cfg.Database.MaxConnections != 5 {
		t.Errorf("MaxConnections = %d, want default 5", cfg.Database.MaxConnections)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	path := writeConfig(t, "version: 99\ndialect: sqlite\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("err = %v, want version error", err)
	}
}

func TestLoadResolvesEnvSecret(t *testing.T) {
	t.Setenv("SCHEMAFORGE_TEST_PW", "s3cret")
	path := writeConfig(t, `
version: 1
dialect: mysql
database:
  host: localhost
  password: ${ENV:SCHEMAFORGE_TEST_PW}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("Password = %q", cfg.Database.Password)
	}
}

func TestLoadFailsOnMissingEnvSecret(t *testing.T) {
	path := writeConfig(t, `
version: 1
dialect: mysql
database:
  password: ${ENV:SCHEMAFORGE_TEST_MISSING}
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unset environment variable")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "schemaforge.yaml")
	cfg := &Config{
		Version: CurrentVersion,
		Dialect: "sqlite",
		Database: DatabaseConfig{
			Path: "app.db",
		},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Database.Path != "app.db" {
		t.Errorf("Path = %q", loaded.Database.Path)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := ExpandHome("~/x.yaml"); got != filepath.Join(home, "x.yaml") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs/x.yaml"); got != "/abs/x.yaml" {
		t.Errorf("ExpandHome abs = %q", got)
	}
}
