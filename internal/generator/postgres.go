package generator

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// PostgresGenerator emits PostgreSQL DDL. PostgreSQL supports every
// alteration natively, so no table is ever recreated.
type PostgresGenerator struct{}

var _ Generator = (*PostgresGenerator)(nil)

func (g *PostgresGenerator) Dialect() sqltype.Dialect { return sqltype.Postgres }

func (g *PostgresGenerator) CreateTable(s *schema.Schema, t *schema.Table) []string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "    "+g.columnDef(c))
	}
	for _, con := range t.Constraints {
		lines = append(lines, "    "+g.constraintClause(con))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		quoteIdent(t.Name, sqltype.Postgres), strings.Join(lines, ",\n"))
	return []string{stmt}
}

func (g *PostgresGenerator) DropTable(name string) []string {
	return []string{fmt.Sprintf("DROP TABLE %s;", quoteIdent(name, sqltype.Postgres))}
}

func (g *PostgresGenerator) AddColumn(s *schema.Schema, table string, c schema.Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
		quoteIdent(table, sqltype.Postgres), g.columnDef(c))}
}

func (g *PostgresGenerator) DropColumn(table, column string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;",
		quoteIdent(table, sqltype.Postgres), quoteIdent(column, sqltype.Postgres))}
}

func (g *PostgresGenerator) AlterTable(old, new *schema.Schema, td *diff.TableDiff, dir Direction) (AlterResult, error) {
	var stmts []string
	table := td.Table

	if dir == Up {
		for _, rc := range td.RenamedColumns {
			stmts = append(stmts, g.renameColumn(table, rc.OldName, rc.New.Name))
			stmts = append(stmts, g.columnChanges(table, rc.New, rc.Changes, dir)...)
		}
		nt := new.Table(table)
		for _, name := range td.AddedColumns {
			if c := nt.Column(name); c != nil {
				stmts = append(stmts, g.AddColumn(new, table, *c)...)
			}
		}
		for _, cd := range td.ModifiedColumns {
			stmts = append(stmts, g.columnChanges(table, cd.New, cd.Changes, dir)...)
		}
		for _, name := range td.RemovedColumns {
			stmts = append(stmts, g.DropColumn(table, name)...)
		}
		return AlterResult{Statements: stmts}, nil
	}

	// Down mirrors up in reverse: restore dropped columns, revert
	// modifications, drop additions, then undo renames last.
	ot := old.Table(table)
	for _, name := range td.RemovedColumns {
		if c := ot.Column(name); c != nil {
			stmts = append(stmts, g.AddColumn(old, table, *c)...)
		}
	}
	for _, cd := range td.ModifiedColumns {
		stmts = append(stmts, g.columnChanges(table, cd.Old, cd.Changes, dir)...)
	}
	for _, name := range td.AddedColumns {
		stmts = append(stmts, g.DropColumn(table, name)...)
	}
	for _, rc := range td.RenamedColumns {
		target := rc.Old
		target.Name = rc.New.Name
		stmts = append(stmts, g.columnChanges(table, target, rc.Changes, dir)...)
		stmts = append(stmts, g.renameColumn(table, rc.New.Name, rc.OldName))
	}
	return AlterResult{Statements: stmts}, nil
}

func (g *PostgresGenerator) renameColumn(table, from, to string) string {
	d := sqltype.Postgres
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
		quoteIdent(table, d), quoteIdent(from, d), quoteIdent(to, d))
}

// columnChanges renders one ALTER statement per changed attribute.
// col is the column's definition on the target side of the direction;
// its type anchors default literal rendering. Renamed changes are
// handled by the caller, which controls ordering.
func (g *PostgresGenerator) columnChanges(table string, col schema.Column, changes []diff.Change, dir Direction) []string {
	d := sqltype.Postgres
	qt := quoteIdent(table, d)
	qc := quoteIdent(col.Name, d)
	var stmts []string

	for _, ch := range changes {
		switch v := ch.(type) {
		case diff.TypeChanged:
			from, to := v.Old, v.New
			if dir == Down {
				from, to = to, from
			}
			target := sqltype.ToSQL(to, d)
			stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", qt, qc, target)
			if cast, ok := usingCast(from, to); ok {
				stmt += fmt.Sprintf(" USING %s::%s", qc, cast)
			}
			stmts = append(stmts, stmt+";")
		case diff.NullableChanged:
			nullable := v.New
			if dir == Down {
				nullable = v.Old
			}
			if nullable {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", qt, qc))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", qt, qc))
			}
		case diff.DefaultChanged:
			target := v.New
			if dir == Down {
				target = v.Old
			}
			if target == nil {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", qt, qc))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;",
					qt, qc, defaultLiteral(*target, col.Type)))
			}
		case diff.AutoIncrementChanged:
			enabled := v.New
			if dir == Down {
				enabled = v.Old
			}
			if enabled {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s ADD GENERATED BY DEFAULT AS IDENTITY;", qt, qc))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP IDENTITY IF EXISTS;", qt, qc))
			}
		case diff.Renamed:
			// Ordered explicitly by AlterTable.
		}
	}
	return stmts
}

// usingCast decides whether an ALTER COLUMN TYPE needs an explicit USING
// clause. The cast table is fixed: any category crossing gets a direct
// cast to the target type, routed through text when the source is an enum
// so the cast is well-defined.
func usingCast(from, to sqltype.Type) (string, bool) {
	if sqltype.CategoryOf(from) == sqltype.CategoryOf(to) {
		if _, fromEnum := from.(sqltype.Enum); fromEnum {
			if _, toEnum := to.(sqltype.Enum); toEnum {
				return "text::" + sqltype.ToSQL(to, sqltype.Postgres), true
			}
		}
		return "", false
	}
	target := sqltype.ToSQL(to, sqltype.Postgres)
	if _, ok := from.(sqltype.Enum); ok {
		return "text::" + target, true
	}
	return target, true
}

func (g *PostgresGenerator) CreateIndex(table string, idx schema.Index) []string {
	d := sqltype.Postgres
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);",
		unique, quoteIdent(idx.Name, d), quoteIdent(table, d),
		strings.Join(quoteIdents(idx.Columns, d), ", "))}
}

func (g *PostgresGenerator) DropIndex(table string, idx schema.Index) []string {
	return []string{fmt.Sprintf("DROP INDEX %s;", quoteIdent(idx.Name, sqltype.Postgres))}
}

func (g *PostgresGenerator) AddConstraint(table string, c schema.Constraint) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s;",
		quoteIdent(table, sqltype.Postgres), g.constraintClause(c))}
}

func (g *PostgresGenerator) DropConstraint(table string, c schema.Constraint) []string {
	d := sqltype.Postgres
	name := constraintName(c)
	if _, ok := c.(schema.PrimaryKey); ok {
		// PostgreSQL names an unnamed primary key <table>_pkey.
		name = table + "_pkey"
	}
	return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;",
		quoteIdent(table, d), quoteIdent(name, d))}
}

func (g *PostgresGenerator) constraintClause(c schema.Constraint) string {
	d := sqltype.Postgres
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

func (g *PostgresGenerator) EnumCreate(e schema.EnumDefinition) []string {
	return []string{fmt.Sprintf("CREATE TYPE %s AS ENUM %s;",
		quoteIdent(e.Name, sqltype.Postgres), enumValueList(e.Values))}
}

func (g *PostgresGenerator) EnumDrop(name string) []string {
	return []string{fmt.Sprintf("DROP TYPE %s;", quoteIdent(name, sqltype.Postgres))}
}

func (g *PostgresGenerator) EnumAlter(s *schema.Schema, ed diff.EnumDiff, allowDestructive bool) ([]string, error) {
	d := sqltype.Postgres
	switch ed.Kind {
	case diff.EnumAddValues:
		var stmts []string
		for _, v := range ed.AddedValues {
			stmt := fmt.Sprintf("ALTER TYPE %s ADD VALUE %s", quoteIdent(ed.Name, d), quoteLiteral(v))
			if before, ok := insertBefore(ed.OldValues, ed.NewValues, v); ok {
				stmt += " BEFORE " + quoteLiteral(before)
			}
			stmts = append(stmts, stmt+";")
		}
		return stmts, nil
	case diff.EnumRecreate:
		if !allowDestructive {
			return nil, fmt.Errorf("enum %q requires recreation (values removed or reordered); destructive changes are not allowed", ed.Name)
		}
		return g.recreateEnum(s, ed), nil
	}
	return nil, nil
}

// recreateEnum swaps an enum type in place: the old type is renamed
// aside, the new one created under the original name, every column using
// it is retyped through text, then the old type is dropped. Rows holding
// removed values will fail the cast and abort the transaction.
func (g *PostgresGenerator) recreateEnum(s *schema.Schema, ed diff.EnumDiff) []string {
	d := sqltype.Postgres
	oldName := ed.Name + "_old"
	stmts := []string{
		fmt.Sprintf("ALTER TYPE %s RENAME TO %s;", quoteIdent(ed.Name, d), quoteIdent(oldName, d)),
		fmt.Sprintf("CREATE TYPE %s AS ENUM %s;", quoteIdent(ed.Name, d), enumValueList(ed.NewValues)),
	}
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			e, ok := c.Type.(sqltype.Enum)
			if !ok || e.Name != ed.Name {
				continue
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::text::%s;",
				quoteIdent(t.Name, d), quoteIdent(c.Name, d),
				quoteIdent(ed.Name, d), quoteIdent(c.Name, d), quoteIdent(ed.Name, d)))
		}
	}
	return append(stmts, fmt.Sprintf("DROP TYPE %s;", quoteIdent(oldName, d)))
}

// insertBefore finds the first value after v in the new order that already
// existed, which is the anchor for ADD VALUE ... BEFORE. Appended values
// have no anchor.
func insertBefore(old, new []string, v string) (string, bool) {
	pos := -1
	for i, nv := range new {
		if nv == v {
			pos = i
			break
		}
	}
	if pos < 0 {
		return "", false
	}
	existing := make(map[string]bool, len(old))
	for _, ov := range old {
		existing[ov] = true
	}
	for _, nv := range new[pos+1:] {
		if existing[nv] {
			return nv, true
		}
	}
	return "", false
}

func (g *PostgresGenerator) columnDef(c schema.Column) string {
	d := sqltype.Postgres
	var typ string
	if c.AutoIncrement {
		if i, ok := c.Type.(sqltype.Integer); ok && i.Precision >= 8 {
			typ = "BIGSERIAL"
		} else {
			typ = "SERIAL"
		}
	} else {
		typ = sqltype.ToSQL(c.Type, d)
	}
	def := quoteIdent(c.Name, d) + " " + typ
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.Default != nil {
		def += " DEFAULT " + defaultLiteral(*c.Default, c.Type)
	}
	return def
}
