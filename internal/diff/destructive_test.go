package diff

import (
	"reflect"
	"testing"

	"github.com/schemaforge/schemaforge/internal/schema"
)

func col(name string) schema.Column {
	return schema.Column{Name: name}
}

func TestDestructiveEmptyDiff(t *testing.T) {
	var d SchemaDiff
	r := Destructive(&d)
	if r.HasDestructiveChanges() {
		t.Error("empty diff should have no destructive changes")
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
}

func TestDestructiveDroppedTableOnly(t *testing.T) {
	d := SchemaDiff{RemovedTables: []string{"logs"}}
	r := Destructive(&d)

	if !r.HasDestructiveChanges() {
		t.Fatal("dropped table must be destructive")
	}
	if len(r.DroppedTables) != 1 || r.DroppedTables[0] != "logs" {
		t.Errorf("DroppedTables = %v, want [logs]", r.DroppedTables)
	}
	if len(r.DroppedColumns) != 0 || len(r.RenamedColumns) != 0 ||
		len(r.DroppedEnums) != 0 || len(r.RecreatedEnums) != 0 {
		t.Errorf("other categories should be empty: %+v", r)
	}
}

func TestDestructiveClassifiesAllKinds(t *testing.T) {
	d := SchemaDiff{
		RemovedTables: []string{"old_table"},
		TableDiffs: []TableDiff{{
			Table:          "users",
			RemovedColumns: []string{"legacy_flag", "notes"},
			RenamedColumns: []RenamedColumn{{
				OldName: "name",
				New:     col("user_name"),
			}},
		}},
		EnumDiffs: []EnumDiff{
			{Name: "status", Kind: EnumDrop},
			{Name: "tier", Kind: EnumRecreate},
			{Name: "fresh", Kind: EnumCreate},
			{Name: "grown", Kind: EnumAddValues},
		},
	}

	r := Destructive(&d)
	if !r.HasDestructiveChanges() {
		t.Fatal("expected destructive changes")
	}
	if got := r.DroppedColumns["users"]; !reflect.DeepEqual(got, []string{"legacy_flag", "notes"}) {
		t.Errorf("DroppedColumns = %v", got)
	}
	if got := r.RenamedColumns["users"]; len(got) != 1 || got[0] != (RenamedPair{OldName: "name", NewName: "user_name"}) {
		t.Errorf("RenamedColumns = %v", got)
	}
	if len(r.DroppedEnums) != 1 || r.DroppedEnums[0] != "status" {
		t.Errorf("DroppedEnums = %v", r.DroppedEnums)
	}
	if len(r.RecreatedEnums) != 1 || r.RecreatedEnums[0] != "tier" {
		t.Errorf("RecreatedEnums = %v", r.RecreatedEnums)
	}
	// Create and AddValues are not destructive.
	if r.Count() != 6 {
		t.Errorf("Count = %d, want 6", r.Count())
	}
}

func TestDestructiveIdempotent(t *testing.T) {
	d := SchemaDiff{
		RemovedTables: []string{"a", "b"},
		TableDiffs: []TableDiff{{
			Table:          "t",
			RemovedColumns: []string{"x"},
		}},
	}
	first := Destructive(&d)
	second := Destructive(&d)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reports differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
