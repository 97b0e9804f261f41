package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is relative to the project root, next to the snapshot.
const DefaultPath = ".schemaforge/state.yaml"

// State records what this project has generated and applied locally. The
// database ledger is authoritative for applied migrations; this file
// only speeds up status output and carries generation bookkeeping that
// has no database home.
type State struct {
	LastUpdated time.Time `yaml:"last_updated"`

	// LastGenerated is the version ID of the most recently generated
	// migration.
	LastGenerated string `yaml:"last_generated,omitempty"`
	// LastApplied is the version ID this machine last applied or rolled
	// back to.
	LastApplied string `yaml:"last_applied,omitempty"`
	// SchemaVersion is the declared schema document version at the time
	// of the last generation.
	SchemaVersion string `yaml:"schema_version,omitempty"`
	// ExportedAt tracks the last database export, if any.
	ExportedAt time.Time `yaml:"exported_at,omitempty"`
}

// Load reads the project state from disk. A missing file is a fresh
// state, not an error.
func Load(path string) (*State, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	return s, nil
}

// Save writes the project state to disk.
func (s *State) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}

	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
