package validation

import (
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// PrimaryKeyPolicy controls the severity of a missing primary key.
// Some legacy and log tables intentionally omit one, so the default is a
// warning.
type PrimaryKeyPolicy int

const (
	PrimaryKeyWarn PrimaryKeyPolicy = iota
	PrimaryKeyError
)

// Per-dialect declared length ceilings for bounded string types.
var (
	maxVarcharLength = map[sqltype.Dialect]int{
		sqltype.Postgres: 10485760,
		sqltype.MySQL:    65535,
	}
	maxCharLength = map[sqltype.Dialect]int{
		sqltype.Postgres: 10485760,
		sqltype.MySQL:    255,
	}
)

// Validator checks a schema snapshot for structural problems. It is
// stateless apart from its configuration and safe to construct per call.
type Validator struct {
	Dialect          sqltype.Dialect
	PrimaryKeyPolicy PrimaryKeyPolicy
}

// New returns a Validator for the given dialect with default policy.
func New(d sqltype.Dialect) *Validator {
	return &Validator{Dialect: d}
}

// Validate runs every category and merges their findings. The result is
// valid iff no category reported an error; all categories always run.
func (v *Validator) Validate(s *schema.Schema) Result {
	var r Result
	r.Merge(v.ValidateEnums(s))
	r.Merge(v.ValidateColumnTypes(s))
	r.Merge(v.ValidatePrimaryKeys(s))
	r.Merge(v.ValidateIndexes(s))
	r.Merge(v.ValidateConstraints(s))
	return r
}

// ValidateEnums checks enum definitions and every enum column reference.
func (v *Validator) ValidateEnums(s *schema.Schema) Result {
	var r Result

	for _, e := range s.Enums {
		if len(e.Values) == 0 {
			r.addError(Syntax, "", "", "enum %q has no values", e.Name)
		}
		seen := make(map[string]bool, len(e.Values))
		for _, val := range e.Values {
			if seen[val] {
				r.addError(Syntax, "", "", "enum %q has duplicate value %q", e.Name, val)
			}
			seen[val] = true
		}
	}

	for _, t := range s.Tables {
		for _, c := range t.Columns {
			e, ok := c.Type.(sqltype.Enum)
			if !ok {
				continue
			}
			if s.Enum(e.Name) == nil {
				r.addError(Reference, t.Name, c.Name, "references undefined enum %q", e.Name)
			}
		}
	}
	return r
}

// ValidateColumnTypes checks type parameter bounds. DialectSpecific types
// are exempt: they are validated by the target database at execution time.
// Lossy dialect fallbacks surface as warnings.
func (v *Validator) ValidateColumnTypes(s *schema.Schema) Result {
	var r Result

	for _, t := range s.Tables {
		for _, c := range t.Columns {
			switch typ := c.Type.(type) {
			case sqltype.Varchar:
				if typ.Length <= 0 {
					r.addError(Syntax, t.Name, c.Name, "varchar length must be positive, got %d", typ.Length)
				} else if max, ok := maxVarcharLength[v.Dialect]; ok && typ.Length > max {
					r.addError(Syntax, t.Name, c.Name, "varchar length %d exceeds the %s maximum of %d", typ.Length, v.Dialect, max)
				}
			case sqltype.Char:
				if typ.Length <= 0 {
					r.addError(Syntax, t.Name, c.Name, "char length must be positive, got %d", typ.Length)
				} else if max, ok := maxCharLength[v.Dialect]; ok && typ.Length > max {
					r.addError(Syntax, t.Name, c.Name, "char length %d exceeds the %s maximum of %d", typ.Length, v.Dialect, max)
				}
			case sqltype.Decimal:
				if typ.Precision <= 0 {
					r.addError(Syntax, t.Name, c.Name, "decimal precision must be positive, got %d", typ.Precision)
				}
				if typ.Scale < 0 {
					r.addError(Syntax, t.Name, c.Name, "decimal scale must not be negative, got %d", typ.Scale)
				}
				if typ.Scale > typ.Precision {
					r.addError(Syntax, t.Name, c.Name, "decimal scale %d exceeds precision %d", typ.Scale, typ.Precision)
				}
			case sqltype.Integer:
				if typ.Precision < 0 {
					r.addError(Syntax, t.Name, c.Name, "integer display width must not be negative, got %d", typ.Precision)
				}
			case sqltype.DialectSpecific:
				// No validation: pass-through by contract.
				continue
			}

			if note := sqltype.FallbackNote(c.Type, v.Dialect); note != "" {
				r.addWarning(t.Name, c.Name, "%s", note)
			}
		}
	}
	return r
}

// ValidatePrimaryKeys warns (or errors, per policy) on tables without a
// primary key, and errors when a declared primary key names an unknown
// column or a table declares more than one.
func (v *Validator) ValidatePrimaryKeys(s *schema.Schema) Result {
	var r Result

	for _, t := range s.Tables {
		count := 0
		for _, c := range t.Constraints {
			pk, ok := c.(schema.PrimaryKey)
			if !ok {
				continue
			}
			count++
			for _, col := range pk.Columns {
				if t.Column(col) == nil {
					r.addError(Reference, t.Name, col, "primary key references unknown column")
				}
			}
		}
		switch {
		case count == 0 && v.PrimaryKeyPolicy == PrimaryKeyError:
			r.addError(Constraint, t.Name, "", "table has no primary key")
		case count == 0:
			r.addWarning(t.Name, "", "table has no primary key")
		case count > 1:
			r.addError(Constraint, t.Name, "", "table declares %d primary keys", count)
		}
	}
	return r
}

// ValidateIndexes checks that every index references existing columns and
// that index names are unique across the whole schema.
func (v *Validator) ValidateIndexes(s *schema.Schema) Result {
	var r Result

	names := make(map[string]string) // index name -> first table
	for _, t := range s.Tables {
		for _, idx := range t.Indexes {
			if len(idx.Columns) == 0 {
				r.addError(Syntax, t.Name, "", "index %q has no columns", idx.Name)
			}
			for _, col := range idx.Columns {
				if t.Column(col) == nil {
					r.addError(Reference, t.Name, col, "index %q references unknown column", idx.Name)
				}
			}
			if first, dup := names[idx.Name]; dup {
				r.addError(Constraint, t.Name, "", "index name %q already used on table %q", idx.Name, first)
			} else {
				names[idx.Name] = t.Name
			}
		}
	}
	return r
}

// ValidateConstraints checks column references of every constraint and the
// cross-table integrity of foreign keys.
func (v *Validator) ValidateConstraints(s *schema.Schema) Result {
	var r Result

	for _, t := range s.Tables {
		for _, c := range t.Constraints {
			switch con := c.(type) {
			case schema.PrimaryKey:
				// Covered by ValidatePrimaryKeys.
			case schema.Unique:
				if len(con.Columns) == 0 {
					r.addError(Syntax, t.Name, "", "unique constraint %q has no columns", con.Name)
				}
				for _, col := range con.Columns {
					if t.Column(col) == nil {
						r.addError(Reference, t.Name, col, "unique constraint %q references unknown column", con.Name)
					}
				}
			case schema.Check:
				for _, col := range con.Columns {
					if t.Column(col) == nil {
						r.addError(Reference, t.Name, col, "check constraint %q references unknown column", con.Name)
					}
				}
				if con.Expression == "" {
					r.addError(Syntax, t.Name, "", "check constraint %q has no expression", con.Name)
				}
			case schema.ForeignKey:
				for _, col := range con.Columns {
					if t.Column(col) == nil {
						r.addError(Reference, t.Name, col, "foreign key %q references unknown local column", con.Name)
					}
				}
				ref := s.Table(con.ReferencedTable)
				if ref == nil {
					r.addError(Reference, t.Name, "", "foreign key %q references unknown table %q", con.Name, con.ReferencedTable)
					continue
				}
				for _, col := range con.ReferencedColumns {
					if ref.Column(col) == nil {
						r.addError(Reference, t.Name, "", "foreign key %q references unknown column %q of table %q", con.Name, col, con.ReferencedTable)
					}
				}
				if len(con.Columns) != len(con.ReferencedColumns) {
					r.addError(Syntax, t.Name, "", "foreign key %q has %d local columns but %d referenced columns", con.Name, len(con.Columns), len(con.ReferencedColumns))
				}
			}
		}
	}
	return r
}
