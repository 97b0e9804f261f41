package schema

import "github.com/schemaforge/schemaforge/internal/sqltype"

// ColumnsEqual reports full structural equality of two columns, including
// the rename hint. Attribute-level comparison for diffing lives in the diff
// package; this is the round-trip notion of equality.
func ColumnsEqual(a, b Column) bool {
	if a.Name != b.Name || a.Nullable != b.Nullable ||
		a.AutoIncrement != b.AutoIncrement || a.RenamedFrom != b.RenamedFrom {
		return false
	}
	if !sqltype.Equal(a.Type, b.Type) {
		return false
	}
	return stringPtrEqual(a.Default, b.Default)
}

// IndexesEqual reports structural equality of two indexes.
func IndexesEqual(a, b Index) bool {
	return a.Name == b.Name && a.Unique == b.Unique && stringsEqual(a.Columns, b.Columns)
}

// ConstraintsEqual reports structural equality of two constraints.
func ConstraintsEqual(a, b Constraint) bool {
	switch ca := a.(type) {
	case PrimaryKey:
		cb, ok := b.(PrimaryKey)
		return ok && stringsEqual(ca.Columns, cb.Columns)
	case ForeignKey:
		cb, ok := b.(ForeignKey)
		return ok && ca.Name == cb.Name &&
			stringsEqual(ca.Columns, cb.Columns) &&
			ca.ReferencedTable == cb.ReferencedTable &&
			stringsEqual(ca.ReferencedColumns, cb.ReferencedColumns)
	case Unique:
		cb, ok := b.(Unique)
		return ok && ca.Name == cb.Name && stringsEqual(ca.Columns, cb.Columns)
	case Check:
		cb, ok := b.(Check)
		return ok && ca.Name == cb.Name &&
			stringsEqual(ca.Columns, cb.Columns) &&
			ca.Expression == cb.Expression
	}
	return false
}

// EnumsEqual reports equality of two enum definitions including value order.
func EnumsEqual(a, b EnumDefinition) bool {
	return a.Name == b.Name && stringsEqual(a.Values, b.Values)
}

// TablesEqual reports full structural equality of two tables.
func TablesEqual(a, b Table) bool {
	if a.Name != b.Name ||
		len(a.Columns) != len(b.Columns) ||
		len(a.Indexes) != len(b.Indexes) ||
		len(a.Constraints) != len(b.Constraints) {
		return false
	}
	for i := range a.Columns {
		if !ColumnsEqual(a.Columns[i], b.Columns[i]) {
			return false
		}
	}
	for i := range a.Indexes {
		if !IndexesEqual(a.Indexes[i], b.Indexes[i]) {
			return false
		}
	}
	for i := range a.Constraints {
		if !ConstraintsEqual(a.Constraints[i], b.Constraints[i]) {
			return false
		}
	}
	return true
}

// SchemasEqual reports full structural equality of two schema snapshots.
func SchemasEqual(a, b *Schema) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Version != b.Version ||
		len(a.Tables) != len(b.Tables) ||
		len(a.Enums) != len(b.Enums) {
		return false
	}
	for i := range a.Tables {
		if !TablesEqual(a.Tables[i], b.Tables[i]) {
			return false
		}
	}
	for i := range a.Enums {
		if !EnumsEqual(a.Enums[i], b.Enums[i]) {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
