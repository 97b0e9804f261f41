package generator

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// SQLiteGenerator emits SQLite DDL. ALTER TABLE covers only RENAME
// COLUMN and ADD COLUMN; everything else goes through full table
// recreation (sqlite_recreate.go), folded into one recreation per table
// no matter how many changes the diff carries.
type SQLiteGenerator struct{}

var _ Generator = (*SQLiteGenerator)(nil)

func (g *SQLiteGenerator) Dialect() sqltype.Dialect { return sqltype.SQLite }

func (g *SQLiteGenerator) CreateTable(s *schema.Schema, t *schema.Table) []string {
	return []string{createTableSQLite(s, t)}
}

func (g *SQLiteGenerator) DropTable(name string) []string {
	return []string{fmt.Sprintf("DROP TABLE %s;", quoteIdent(name, sqltype.SQLite))}
}

func (g *SQLiteGenerator) AddColumn(s *schema.Schema, table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
		quoteIdent(table, sqltype.SQLite), columnDefSQLite(s, c, false))}
}

func (g *SQLiteGenerator) DropColumn(table, column string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;",
		quoteIdent(table, sqltype.SQLite), quoteIdent(column, sqltype.SQLite))}
}

func (g *SQLiteGenerator) AlterTable(old, new *schema.Schema, td *diff.TableDiff, dir Direction) (AlterResult, error) {
	// Existing rows cannot satisfy a new NOT NULL column without a
	// default; SQLite has no way to express this even via recreation.
	if dir == Up {
		nt := new.Table(td.Table)
		for _, name := range td.AddedColumns {
			c := nt.Column(name)
			if c != nil && !c.Nullable && c.Default == nil {
				return AlterResult{}, fmt.Errorf("cannot add NOT NULL column %q to table %q without a default", name, td.Table)
			}
		}
	}

	if !needsRecreation(td) {
		return g.alterInPlace(old, new, td, dir), nil
	}

	source, target := old.Table(td.Table), new.Table(td.Table)
	renames := renameMap(td)
	if dir == Down {
		source, target = target, source
		renames = invertMap(renames)
	}
	if source == nil || target == nil {
		return AlterResult{}, fmt.Errorf("table %q missing from a schema snapshot", td.Table)
	}
	sch := new
	if dir == Down {
		sch = old
	}
	return AlterResult{
		Statements: recreateTable(sch, source, target, renames),
		Recreated:  true,
	}, nil
}

// needsRecreation reports whether any change in the diff falls outside
// SQLite's native ALTER TABLE support.
func needsRecreation(td *diff.TableDiff) bool {
	if len(td.ModifiedColumns) > 0 || len(td.RemovedColumns) > 0 {
		return true
	}
	if len(td.AddedConstraints) > 0 || len(td.RemovedConstraints) > 0 {
		return true
	}
	for _, rc := range td.RenamedColumns {
		// A lone Renamed entry means a pure rename; anything more needs
		// the column redeclared.
		if len(rc.Changes) > 1 {
			return true
		}
	}
	return false
}

// alterInPlace handles the diffs SQLite can do natively: pure renames
// and column additions.
func (g *SQLiteGenerator) alterInPlace(old, new *schema.Schema, td *diff.TableDiff, dir Direction) AlterResult {
	var stmts []string
	table := td.Table
	qt := quoteIdent(table, sqltype.SQLite)

	if dir == Up {
		for _, rc := range td.RenamedColumns {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
				qt, quoteIdent(rc.OldName, sqltype.SQLite), quoteIdent(rc.New.Name, sqltype.SQLite)))
		}
		nt := new.Table(table)
		for _, name := range td.AddedColumns {
			if c := nt.Column(name); c != nil {
				stmts = append(stmts, g.AddColumn(new, table, *c)...)
			}
		}
		return AlterResult{Statements: stmts}
	}

	for _, name := range td.AddedColumns {
		stmts = append(stmts, g.DropColumn(table, name)...)
	}
	for _, rc := range td.RenamedColumns {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
			qt, quoteIdent(rc.New.Name, sqltype.SQLite), quoteIdent(rc.OldName, sqltype.SQLite)))
	}
	return AlterResult{Statements: stmts}
}

func (g *SQLiteGenerator) CreateIndex(table string, idx schema.Index) []string {
	d := sqltype.SQLite
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);",
		unique, quoteIdent(idx.Name, d), quoteIdent(table, d),
		strings.Join(quoteIdents(idx.Columns, d), ", "))}
}

func (g *SQLiteGenerator) DropIndex(table string, idx schema.Index) []string {
	return []string{fmt.Sprintf("DROP INDEX %s;", quoteIdent(idx.Name, sqltype.SQLite))}
}

// Constraint changes cannot be expressed as ALTER TABLE on SQLite; the
// pipeline routes tables with constraint diffs through AlterTable, which
// recreates them. These exist for added tables only, where the clauses
// are already inline in CREATE TABLE.
func (g *SQLiteGenerator) AddConstraint(table string, c schema.Constraint) []string  { return nil }
func (g *SQLiteGenerator) DropConstraint(table string, c schema.Constraint) []string { return nil }

// Enums are emulated per column as TEXT plus a CHECK over the value
// list, so there is no standalone enum DDL.
func (g *SQLiteGenerator) EnumCreate(e schema.EnumDefinition) []string { return nil }
func (g *SQLiteGenerator) EnumDrop(name string) []string              { return nil }

// EnumAlter recreates every table with a column of the enum type: the
// value list is baked into each column's CHECK constraint and SQLite
// cannot alter a CHECK in place.
func (g *SQLiteGenerator) EnumAlter(s *schema.Schema, ed diff.EnumDiff, allowDestructive bool) ([]string, error) {
	if ed.Kind == diff.EnumRecreate && !allowDestructive {
		return nil, fmt.Errorf("enum %q requires table recreation (values removed or reordered); destructive changes are not allowed", ed.Name)
	}
	var stmts []string
	for i := range s.Tables {
		t := &s.Tables[i]
		if !tableUsesEnum(t, ed.Name) {
			continue
		}
		stmts = append(stmts, recreateTable(s, t, t, nil)...)
	}
	return stmts, nil
}

func tableUsesEnum(t *schema.Table, name string) bool {
	for _, c := range t.Columns {
		if e, ok := c.Type.(sqltype.Enum); ok && e.Name == name {
			return true
		}
	}
	return false
}

// renameMap maps new column names to their old names.
func renameMap(td *diff.TableDiff) map[string]string {
	if len(td.RenamedColumns) == 0 {
		return nil
	}
	m := make(map[string]string, len(td.RenamedColumns))
	for _, rc := range td.RenamedColumns {
		m[rc.New.Name] = rc.OldName
	}
	return m
}

func invertMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
