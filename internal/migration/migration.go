package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// Migration is one generated migration: a version directory holding the
// up and down scripts plus metadata.
type Migration struct {
	Version string
	UpSQL   string
	DownSQL string
	Meta    Metadata
}

// Metadata is persisted as migration.yaml next to the scripts. The
// destructive report is written even when empty so a later reader can
// tell "verified non-destructive" apart from "report missing".
type Metadata struct {
	Version     string                  `yaml:"version"`
	Name        string                  `yaml:"name"`
	Dialect     sqltype.Dialect         `yaml:"dialect"`
	CreatedAt   time.Time               `yaml:"created_at"`
	Checksum    string                  `yaml:"checksum"`
	Destructive *diff.DestructiveReport `yaml:"destructive_changes"`
}

// DestructiveReport returns the recorded report. known is false when the
// metadata predates destructive tracking; callers must then assume the
// migration is destructive.
func (m *Metadata) DestructiveReport() (diff.DestructiveReport, bool) {
	if m.Destructive == nil {
		return diff.DestructiveReport{}, false
	}
	return *m.Destructive, true
}

var nameSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// NewVersion builds a version ID from the current time and a
// human-readable name: 20060102150405_add_users. Version order is
// lexical order is chronological order.
func NewVersion(name string, now time.Time) string {
	slug := nameSanitizer.ReplaceAllString(strings.ToLower(name), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "migration"
	}
	return fmt.Sprintf("%s_%s", now.UTC().Format("20060102150405"), slug)
}

var versionPattern = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)$`)

// ParseVersion splits a version ID into its timestamp and name parts.
func ParseVersion(version string) (ts time.Time, name string, err error) {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return time.Time{}, "", fmt.Errorf("malformed migration version %q", version)
	}
	ts, err = time.Parse("20060102150405", m[1])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed migration version %q: %w", version, err)
	}
	return ts, m[2], nil
}

// Checksum fingerprints the up script. The ledger stores it so drift
// between a generated file and what was actually applied is detectable.
func Checksum(upSQL string) string {
	sum := sha256.Sum256([]byte(upSQL))
	return hex.EncodeToString(sum[:])
}
