package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	// DefaultPath is project-local: schema definitions travel with the
	// repository they describe.
	DefaultPath = "schemaforge.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Dialect  string         `yaml:"dialect"` // postgresql, mysql or sqlite
	Database DatabaseConfig `yaml:"database"`
	Schema   SchemaConfig   `yaml:"schema,omitempty"`
	Logging  LogConfig      `yaml:"logging,omitempty"`
}

// DatabaseConfig defines the target database connection. Path is used
// by SQLite; the host fields by the server dialects.
type DatabaseConfig struct {
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Database       string `yaml:"database,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	SSL            bool   `yaml:"ssl,omitempty"`
	Path           string `yaml:"path,omitempty"`
	MaxConnections int    `yaml:"max_connections,omitempty"` // default 5, max 20
}

// SchemaConfig locates the declarative schema and its artifacts.
type SchemaConfig struct {
	// File is the declared (desired) schema document.
	File string `yaml:"file,omitempty"`
	// SnapshotFile records the schema as of the last generated
	// migration; diffs run against it.
	SnapshotFile string `yaml:"snapshot_file,omitempty"`
	// MigrationsDir holds one directory per generated migration.
	MigrationsDir string `yaml:"migrations_dir,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.schemaforge/logs/
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}
	path = ExpandHome(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyDefaults() {
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 5
	}
	if c.Database.MaxConnections > 20 {
		c.Database.MaxConnections = 20
	}
	if c.Schema.File == "" {
		c.Schema.File = "schema.yaml"
	}
	if c.Schema.SnapshotFile == "" {
		c.Schema.SnapshotFile = filepath.Join(".schemaforge", "snapshot.yaml")
	}
	if c.Schema.MigrationsDir == "" {
		c.Schema.MigrationsDir = "migrations"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.schemaforge/logs/")
	}
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Database.Password, err = ResolveValue(c.Database.Password)
	if err != nil {
		return fmt.Errorf("database password: %w", err)
	}
	return nil
}

// ResolveValue resolves ${ENV:NAME} references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	v := os.Getenv(matches[1])
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", matches[1])
	}
	return v, nil
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
