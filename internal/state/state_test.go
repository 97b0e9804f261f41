package state

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileIsFreshState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LastGenerated != "" || s.LastApplied != "" {
		t.Errorf("fresh state carries values: %+v", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".schemaforge", "state.yaml")

	s := &State{
		LastGenerated: "20240301120000_add_users",
		LastApplied:   "20240201120000_init",
		SchemaVersion: "1",
		ExportedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastGenerated != s.LastGenerated || got.LastApplied != s.LastApplied {
		t.Errorf("round trip lost versions: %+v", got)
	}
	if !got.ExportedAt.Equal(s.ExportedAt) {
		t.Errorf("ExportedAt = %v, want %v", got.ExportedAt, s.ExportedAt)
	}
	if got.LastUpdated.IsZero() {
		t.Error("Save should stamp LastUpdated")
	}
}
