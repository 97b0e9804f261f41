package generator

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// recreateTable rewrites a table the only way SQLite allows arbitrary
// changes: build the target shape under a temporary name, copy the
// surviving rows across, swap the tables, then rebuild the indexes.
// Foreign key enforcement is suspended around the swap and verified
// afterwards with foreign_key_check.
//
// renames maps target column names to their source names so renamed
// columns keep their data through the copy. Columns present only in the
// target are left to their defaults; columns present only in the source
// are dropped with the old table.
func recreateTable(s *schema.Schema, source, target *schema.Table, renames map[string]string) []string {
	d := sqltype.SQLite
	tmpName := target.Name + "_new"

	tmp := *target
	tmp.Name = tmpName

	stmts := []string{
		"PRAGMA foreign_keys=OFF;",
		"BEGIN TRANSACTION;",
		createTableSQLite(s, &tmp),
	}

	targetCols, sourceCols := copyColumns(source, target, renames)
	if len(targetCols) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;",
			quoteIdent(tmpName, d),
			strings.Join(quoteIdents(targetCols, d), ", "),
			strings.Join(quoteIdents(sourceCols, d), ", "),
			quoteIdent(source.Name, d)))
	}

	stmts = append(stmts,
		fmt.Sprintf("DROP TABLE %s;", quoteIdent(source.Name, d)),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", quoteIdent(tmpName, d), quoteIdent(target.Name, d)),
	)

	for _, idx := range target.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);",
			unique, quoteIdent(idx.Name, d), quoteIdent(target.Name, d),
			strings.Join(quoteIdents(idx.Columns, d), ", ")))
	}

	return append(stmts,
		"COMMIT;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA foreign_key_check;",
	)
}

// copyColumns pairs up the target columns with their data source. A
// target column survives the copy when the source table has a column of
// the same name or of its pre-rename name.
func copyColumns(source, target *schema.Table, renames map[string]string) (targetCols, sourceCols []string) {
	for _, c := range target.Columns {
		src := c.Name
		if from, ok := renames[c.Name]; ok {
			src = from
		}
		if source.Column(src) == nil {
			continue
		}
		targetCols = append(targetCols, c.Name)
		sourceCols = append(sourceCols, src)
	}
	return targetCols, sourceCols
}

// createTableSQLite renders a full CREATE TABLE. A single-column integer
// primary key with auto-increment collapses into INTEGER PRIMARY KEY
// AUTOINCREMENT, which is the only form SQLite accepts for it.
func createTableSQLite(s *schema.Schema, t *schema.Table) string {
	d := sqltype.SQLite
	pk := t.PrimaryKey()
	rowidPK := isRowidPK(t, pk)

	var lines []string
	for _, c := range t.Columns {
		inlinePK := rowidPK && pk != nil && c.Name == pk.Columns[0]
		lines = append(lines, "    "+columnDefSQLite(s, c, inlinePK))
	}
	for _, con := range t.Constraints {
		if _, isPK := con.(schema.PrimaryKey); isPK && rowidPK {
			continue
		}
		lines = append(lines, "    "+constraintClauseSQLite(con))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		quoteIdent(t.Name, d), strings.Join(lines, ",\n"))
}

// isRowidPK reports whether the primary key must be declared inline on
// its column: single integer column with auto-increment.
func isRowidPK(t *schema.Table, pk *schema.PrimaryKey) bool {
	if pk == nil || len(pk.Columns) != 1 {
		return false
	}
	c := t.Column(pk.Columns[0])
	if c == nil || !c.AutoIncrement {
		return false
	}
	_, ok := c.Type.(sqltype.Integer)
	return ok
}

func columnDefSQLite(s *schema.Schema, c schema.Column, inlinePK bool) string {
	d := sqltype.SQLite
	def := quoteIdent(c.Name, d) + " " + sqltype.ToSQL(c.Type, d)
	if inlinePK {
		return def + " PRIMARY KEY AUTOINCREMENT"
	}
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.Default != nil {
		def += " DEFAULT " + defaultLiteral(*c.Default, c.Type)
	}
	if e, ok := c.Type.(sqltype.Enum); ok {
		if values := s.EnumValues(e.Name); len(values) > 0 {
			def += fmt.Sprintf(" CHECK (%s IN %s)", quoteIdent(c.Name, d), enumValueList(values))
		}
	}
	return def
}

func constraintClauseSQLite(c schema.Constraint) string {
	d := sqltype.SQLite
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
