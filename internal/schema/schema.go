package schema

import (
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// Schema is an immutable snapshot of a declared database schema.
// Table and enum order follows the declaration document.
type Schema struct {
	Version string
	Tables  []Table
	Enums   []EnumDefinition
}

// Table is a declared table. The name comes from the document's table key.
type Table struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	Constraints []Constraint
}

// Column is a declared column. RenamedFrom, when set, declares that this
// column replaces a column of that name in the previous schema version; it
// is the only signal rename detection uses.
type Column struct {
	Name          string
	Type          sqltype.Type
	Nullable      bool
	Default       *string
	AutoIncrement bool
	RenamedFrom   string
}

// Index is a declared index. Index names are unique across the database,
// not just within a table.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// EnumDefinition is a named enum type. Value order is significant: it is
// part of the generated CREATE TYPE statement and of diff equality.
type EnumDefinition struct {
	Name   string
	Values []string
}

// Constraint is a table constraint. The set of implementations is closed;
// consumers switch exhaustively over PrimaryKey, ForeignKey, Unique, Check.
type Constraint interface {
	isConstraint()
}

// PrimaryKey declares the table's primary key columns. At most one per
// table; the declarative document expresses it as a primary_key field.
type PrimaryKey struct {
	Columns []string
}

// ForeignKey references columns of another table by name. The reference is
// resolved by lookup at validation and generation time, never by pointer.
type ForeignKey struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
}

// Unique declares a uniqueness constraint over one or more columns.
type Unique struct {
	Name    string
	Columns []string
}

// Check declares a check constraint with a raw SQL expression.
type Check struct {
	Name       string
	Columns    []string
	Expression string
}

func (PrimaryKey) isConstraint() {}
func (ForeignKey) isConstraint() {}
func (Unique) isConstraint()     {}
func (Check) isConstraint()      {}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Enum returns the enum definition with the given name, or nil.
func (s *Schema) Enum(name string) *EnumDefinition {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}

// EnumValues returns the values of the named enum, or nil when undefined.
func (s *Schema) EnumValues(name string) []string {
	if e := s.Enum(name); e != nil {
		return e.Values
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// PrimaryKey returns the table's primary key constraint, or nil.
func (t *Table) PrimaryKey() *PrimaryKey {
	for _, c := range t.Constraints {
		if pk, ok := c.(PrimaryKey); ok {
			return &pk
		}
	}
	return nil
}
