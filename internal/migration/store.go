package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	upFile   = "up.sql"
	downFile = "down.sql"
	metaFile = "migration.yaml"
)

// Store persists migrations as one directory per version under a
// migrations root.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Write creates the migration's directory with its scripts and
// metadata. An existing directory for the same version is an error.
func (s *Store) Write(m *Migration) error {
	dir := filepath.Join(s.Dir, m.Version)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("migration %s already exists", m.Version)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating migration directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, upFile), []byte(m.UpSQL), 0o644); err != nil {
		return fmt.Errorf("writing up script: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, downFile), []byte(m.DownSQL), 0o644); err != nil {
		return fmt.Errorf("writing down script: %w", err)
	}

	meta, err := yaml.Marshal(&m.Meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), meta, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// Load reads one migration by version.
func (s *Store) Load(version string) (*Migration, error) {
	dir := filepath.Join(s.Dir, version)

	up, err := os.ReadFile(filepath.Join(dir, upFile))
	if err != nil {
		return nil, fmt.Errorf("reading up script: %w", err)
	}
	down, err := os.ReadFile(filepath.Join(dir, downFile))
	if err != nil {
		return nil, fmt.Errorf("reading down script: %w", err)
	}

	m := &Migration{Version: version, UpSQL: string(up), DownSQL: string(down)}

	metaData, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			// Predates metadata; Meta.Destructive stays nil, which
			// consumers treat as "assume destructive".
			m.Meta = Metadata{Version: version}
			return m, nil
		}
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	if err := yaml.Unmarshal(metaData, &m.Meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return m, nil
}

// List returns every migration version in chronological order. Entries
// that do not look like migration directories are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, _, err := ParseVersion(e.Name()); err != nil {
			continue
		}
		versions = append(versions, e.Name())
	}
	sort.Strings(versions)
	return versions, nil
}

// LoadAll reads every migration in chronological order.
func (s *Store) LoadAll() ([]*Migration, error) {
	versions, err := s.List()
	if err != nil {
		return nil, err
	}
	migrations := make([]*Migration, 0, len(versions))
	for _, v := range versions {
		m, err := s.Load(v)
		if err != nil {
			return nil, fmt.Errorf("loading migration %s: %w", v, err)
		}
		migrations = append(migrations, m)
	}
	return migrations, nil
}

// Pending filters the stored migrations down to those not yet applied.
func Pending(all []*Migration, applied map[string]bool) []*Migration {
	var pending []*Migration
	for _, m := range all {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// VerifyChecksum reports whether the stored up script still matches the
// checksum recorded when the migration was applied.
func VerifyChecksum(m *Migration, appliedChecksum string) error {
	if got := Checksum(m.UpSQL); got != appliedChecksum {
		return fmt.Errorf("migration %s has been modified after being applied (checksum %s, ledger has %s)",
			m.Version, got[:12], appliedChecksum[:min(12, len(appliedChecksum))])
	}
	return nil
}
