package generator

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// Direction selects which side of a migration is being generated.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// AlterResult is the outcome of generating one table's alterations.
// Recreated is set when the statements rebuilt the table wholesale
// (SQLite recreation); indexes and constraints are then already in
// place and later stages must skip that table.
type AlterResult struct {
	Statements []string
	Recreated  bool
}

// Generator turns diff elements into ordered SQL statements for one
// dialect. Implementations are stateless; selection happens once per
// generation run.
type Generator interface {
	Dialect() sqltype.Dialect

	// CreateTable emits the full CREATE TABLE plus any inline artifacts
	// the dialect needs. The schema provides enum definitions.
	CreateTable(s *schema.Schema, t *schema.Table) []string
	DropTable(name string) []string

	AddColumn(s *schema.Schema, table string, c schema.Column) []string
	DropColumn(table, column string) []string

	// AlterTable generates every column-level change of one table diff in
	// a single call so dialects that must recreate the table can fold all
	// changes into one recreation. Down inverts each change using the old
	// definitions carried by the diff.
	AlterTable(old, new *schema.Schema, td *diff.TableDiff, dir Direction) (AlterResult, error)

	CreateIndex(table string, idx schema.Index) []string
	DropIndex(table string, idx schema.Index) []string

	AddConstraint(table string, c schema.Constraint) []string
	DropConstraint(table string, c schema.Constraint) []string

	// Enum lifecycle. Dialects without native enum types return no
	// statements: their emulation lives in the column type text.
	EnumCreate(e schema.EnumDefinition) []string
	EnumAlter(s *schema.Schema, ed diff.EnumDiff, allowDestructive bool) ([]string, error)
	EnumDrop(name string) []string
}

// ForDialect returns the generator strategy for a dialect.
func ForDialect(d sqltype.Dialect) (Generator, error) {
	switch d {
	case sqltype.Postgres:
		return &PostgresGenerator{}, nil
	case sqltype.MySQL:
		return &MySQLGenerator{}, nil
	case sqltype.SQLite:
		return &SQLiteGenerator{}, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", d)
}

// quoteIdent quotes an identifier only when it needs quoting, keeping
// generated SQL readable for the common case.
func quoteIdent(name string, d sqltype.Dialect) string {
	if isPlainIdent(name) {
		return name
	}
	if d == sqltype.MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func quoteIdents(names []string, d sqltype.Dialect) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n, d)
	}
	return out
}

// quoteLiteral single-quotes a string literal.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// defaultLiteral renders a column default. Numeric and boolean literals,
// NULL, and function-style expressions pass through raw; everything else
// is quoted as a string literal.
func defaultLiteral(value string, typ sqltype.Type) string {
	upper := strings.ToUpper(value)
	switch upper {
	case "NULL", "TRUE", "FALSE", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME":
		return upper
	}
	if strings.HasSuffix(value, ")") && strings.Contains(value, "(") {
		// Function expression such as now() or gen_random_uuid().
		return value
	}
	switch sqltype.CategoryOf(typ) {
	case sqltype.CategoryNumeric, sqltype.CategoryBoolean:
		if isNumericLiteral(value) {
			return value
		}
	}
	return quoteLiteral(value)
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '-' && i == 0:
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// enumValueList renders ('a','b','c') for enum emulation.
func enumValueList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteLiteral(v)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// constraintName returns the declared name of a constraint, or an empty
// string for primary keys, which are unnamed in the model.
func constraintName(c schema.Constraint) string {
	switch v := c.(type) {
	case schema.ForeignKey:
		return v.Name
	case schema.Unique:
		return v.Name
	case schema.Check:
		return v.Name
	}
	return ""
}
