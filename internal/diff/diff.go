package diff

import (
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// SchemaDiff is the structural difference between two schema snapshots.
// It is produced once by Detect and never mutated afterwards.
type SchemaDiff struct {
	AddedTables   []string
	RemovedTables []string
	TableDiffs    []TableDiff
	EnumDiffs     []EnumDiff
}

// TableDiff collects the changes within one table that exists in both
// snapshots. Every column is classified into exactly one of added,
// removed, modified, or renamed.
type TableDiff struct {
	Table string

	AddedColumns    []string
	RemovedColumns  []string
	ModifiedColumns []ColumnDiff
	RenamedColumns  []RenamedColumn

	AddedIndexes   []schema.Index
	RemovedIndexes []schema.Index

	AddedConstraints   []schema.Constraint
	RemovedConstraints []schema.Constraint
}

// ColumnDiff is a column present in both snapshots with one Change entry
// per differing attribute.
type ColumnDiff struct {
	Old     schema.Column
	New     schema.Column
	Changes []Change
}

// RenamedColumn records a rename declared through a renamed_from hint.
// Both full column definitions are kept: MySQL's CHANGE COLUMN needs the
// complete old definition to generate the down direction.
type RenamedColumn struct {
	OldName string
	Old     schema.Column
	New     schema.Column
	Changes []Change
}

// Change is one attribute-level column change. The set of implementations
// is closed.
type Change interface {
	isChange()
}

// TypeChanged records a column type transition.
type TypeChanged struct {
	Old sqltype.Type
	New sqltype.Type
}

// NullableChanged records a nullability flip.
type NullableChanged struct {
	Old bool
	New bool
}

// DefaultChanged records a default value change.
type DefaultChanged struct {
	Old *string
	New *string
}

// AutoIncrementChanged records an auto-increment flip.
type AutoIncrementChanged struct {
	Old bool
	New bool
}

// Renamed records the rename itself within a RenamedColumn's change list.
type Renamed struct {
	OldName string
	NewName string
}

func (TypeChanged) isChange()          {}
func (NullableChanged) isChange()      {}
func (DefaultChanged) isChange()       {}
func (AutoIncrementChanged) isChange() {}
func (Renamed) isChange()              {}

// EnumChangeKind classifies an enum transition.
type EnumChangeKind int

const (
	// EnumCreate is a newly declared enum.
	EnumCreate EnumChangeKind = iota
	// EnumDrop is a removed enum.
	EnumDrop
	// EnumAddValues appends or inserts values while keeping every old
	// value in its relative order.
	EnumAddValues
	// EnumRecreate is any value removal or reorder; destructive.
	EnumRecreate
)

func (k EnumChangeKind) String() string {
	switch k {
	case EnumCreate:
		return "create"
	case EnumDrop:
		return "drop"
	case EnumAddValues:
		return "add_values"
	}
	return "recreate"
}

// EnumDiff is one enum's transition between snapshots.
type EnumDiff struct {
	Name        string
	Kind        EnumChangeKind
	OldValues   []string
	NewValues   []string
	AddedValues []string
}

// Empty reports whether the diff contains no change at all.
func (d *SchemaDiff) Empty() bool {
	return len(d.AddedTables) == 0 &&
		len(d.RemovedTables) == 0 &&
		len(d.TableDiffs) == 0 &&
		len(d.EnumDiffs) == 0
}

// Empty reports whether the table diff contains no change.
func (td *TableDiff) Empty() bool {
	return len(td.AddedColumns) == 0 &&
		len(td.RemovedColumns) == 0 &&
		len(td.ModifiedColumns) == 0 &&
		len(td.RenamedColumns) == 0 &&
		len(td.AddedIndexes) == 0 &&
		len(td.RemovedIndexes) == 0 &&
		len(td.AddedConstraints) == 0 &&
		len(td.RemovedConstraints) == 0
}

// TableDiff returns the diff entry for the named table, or nil.
func (d *SchemaDiff) TableDiff(name string) *TableDiff {
	for i := range d.TableDiffs {
		if d.TableDiffs[i].Table == name {
			return &d.TableDiffs[i]
		}
	}
	return nil
}
