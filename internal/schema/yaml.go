package schema

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadFile reads and parses a declarative schema document from disk.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// WriteFile serializes a schema and writes it to disk, creating the
// directory if needed.
func WriteFile(s *Schema, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating schema directory: %w", err)
	}
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
