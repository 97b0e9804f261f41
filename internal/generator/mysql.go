package generator

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// MySQLGenerator emits MySQL DDL. Column alterations always restate the
// full column definition: MODIFY COLUMN and CHANGE COLUMN replace every
// attribute at once, so partial alteration syntax does not exist here.
type MySQLGenerator struct{}

var _ Generator = (*MySQLGenerator)(nil)

func (g *MySQLGenerator) Dialect() sqltype.Dialect { return sqltype.MySQL }

func (g *MySQLGenerator) CreateTable(s *schema.Schema, t *schema.Table) []string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "    "+g.columnDef(s, c))
	}
	for _, con := range t.Constraints {
		lines = append(lines, "    "+g.constraintClause(con))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		quoteIdent(t.Name, sqltype.MySQL), strings.Join(lines, ",\n"))
	return []string{stmt}
}

func (g *MySQLGenerator) DropTable(name string) []string {
	return []string{fmt.Sprintf("DROP TABLE %s;", quoteIdent(name, sqltype.MySQL))}
}

func (g *MySQLGenerator) AddColumn(s *schema.Schema, table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
		quoteIdent(table, sqltype.MySQL), g.columnDef(s, c))}
}

func (g *MySQLGenerator) DropColumn(table, column string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;",
		quoteIdent(table, sqltype.MySQL), quoteIdent(column, sqltype.MySQL))}
}

func (g *MySQLGenerator) AlterTable(old, new *schema.Schema, td *diff.TableDiff, dir Direction) (AlterResult, error) {
	var stmts []string
	table := td.Table
	qt := quoteIdent(table, sqltype.MySQL)

	if dir == Up {
		// CHANGE COLUMN renames and redeclares in one statement, so any
		// attribute changes riding on a rename are already covered.
		for _, rc := range td.RenamedColumns {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s;",
				qt, quoteIdent(rc.OldName, sqltype.MySQL), g.columnDef(new, rc.New)))
		}
		nt := new.Table(table)
		for _, name := range td.AddedColumns {
			if c := nt.Column(name); c != nil {
				stmts = append(stmts, g.AddColumn(new, table, *c)...)
			}
		}
		for _, cd := range td.ModifiedColumns {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;",
				qt, g.columnDef(new, cd.New)))
		}
		for _, name := range td.RemovedColumns {
			stmts = append(stmts, g.DropColumn(table, name)...)
		}
		return AlterResult{Statements: stmts}, nil
	}

	ot := old.Table(table)
	for _, name := range td.RemovedColumns {
		if c := ot.Column(name); c != nil {
			stmts = append(stmts, g.AddColumn(old, table, *c)...)
		}
	}
	for _, cd := range td.ModifiedColumns {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;",
			qt, g.columnDef(old, cd.Old)))
	}
	for _, name := range td.AddedColumns {
		stmts = append(stmts, g.DropColumn(table, name)...)
	}
	for _, rc := range td.RenamedColumns {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s;",
			qt, quoteIdent(rc.New.Name, sqltype.MySQL), g.columnDef(old, rc.Old)))
	}
	return AlterResult{Statements: stmts}, nil
}

func (g *MySQLGenerator) CreateIndex(table string, idx schema.Index) []string {
	d := sqltype.MySQL
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);",
		unique, quoteIdent(idx.Name, d), quoteIdent(table, d),
		strings.Join(quoteIdents(idx.Columns, d), ", "))}
}

func (g *MySQLGenerator) DropIndex(table string, idx schema.Index) []string {
	d := sqltype.MySQL
	return []string{fmt.Sprintf("DROP INDEX %s ON %s;",
		quoteIdent(idx.Name, d), quoteIdent(table, d))}
}

func (g *MySQLGenerator) AddConstraint(table string, c schema.Constraint) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s;",
		quoteIdent(table, sqltype.MySQL), g.constraintClause(c))}
}

// DropConstraint picks the clause MySQL requires for each constraint
// kind; there is no uniform DROP CONSTRAINT before 8.0.19 and the
// kind-specific forms work on every version.
func (g *MySQLGenerator) DropConstraint(table string, c schema.Constraint) []string {
	d := sqltype.MySQL
	qt := quoteIdent(table, d)
	switch v := c.(type) {
	case schema.PrimaryKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", qt)}
	case schema.ForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", qt, quoteIdent(v.Name, d))}
	case schema.Unique:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", qt, quoteIdent(v.Name, d))}
	case schema.Check:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CHECK %s;", qt, quoteIdent(v.Name, d))}
	}
	return nil
}

func (g *MySQLGenerator) constraintClause(c schema.Constraint) string {
	d := sqltype.MySQL
	switch v := c.(type) {
	case schema.PrimaryKey:
		return fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoteIdents(v.Columns, d), ", "))
	case schema.ForeignKey:
		return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(v.Name, d),
			strings.Join(quoteIdents(v.Columns, d), ", "),
			quoteIdent(v.ReferencedTable, d),
			strings.Join(quoteIdents(v.ReferencedColumns, d), ", "))
	case schema.Unique:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)",
			quoteIdent(v.Name, d), strings.Join(quoteIdents(v.Columns, d), ", "))
	case schema.Check:
		return fmt.Sprintf("CONSTRAINT %s CHECK (%s)", quoteIdent(v.Name, d), v.Expression)
	}
	return ""
}

// MySQL has no standalone enum types; the value list lives inline in
// each column definition.
func (g *MySQLGenerator) EnumCreate(e schema.EnumDefinition) []string { return nil }
func (g *MySQLGenerator) EnumDrop(name string) []string              { return nil }

// EnumAlter redeclares every column that uses the enum with the new
// value list. Shrinking the list truncates rows holding removed values,
// hence the destructive gate on recreation.
func (g *MySQLGenerator) EnumAlter(s *schema.Schema, ed diff.EnumDiff, allowDestructive bool) ([]string, error) {
	if ed.Kind == diff.EnumRecreate && !allowDestructive {
		return nil, fmt.Errorf("enum %q requires column redeclaration (values removed or reordered); destructive changes are not allowed", ed.Name)
	}
	var stmts []string
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			e, ok := c.Type.(sqltype.Enum)
			if !ok || e.Name != ed.Name {
				continue
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;",
				quoteIdent(t.Name, sqltype.MySQL), g.columnDef(s, c)))
		}
	}
	return stmts, nil
}

// columnDef renders the full column definition MySQL expects in CREATE,
// ADD, MODIFY and CHANGE clauses.
func (g *MySQLGenerator) columnDef(s *schema.Schema, c schema.Column) string {
	d := sqltype.MySQL
	typ := g.columnType(s, c.Type)
	def := quoteIdent(c.Name, d) + " " + typ
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.Default != nil {
		def += " DEFAULT " + defaultLiteral(*c.Default, c.Type)
	}
	if c.AutoIncrement {
		def += " AUTO_INCREMENT"
	}
	return def
}

func (g *MySQLGenerator) columnType(s *schema.Schema, t sqltype.Type) string {
	if e, ok := t.(sqltype.Enum); ok {
		if values := s.EnumValues(e.Name); len(values) > 0 {
			return "ENUM" + enumValueList(values)
		}
	}
	return sqltype.ToSQL(t, sqltype.MySQL)
}
