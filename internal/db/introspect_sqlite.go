package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// Introspect reads the database file back into the declarative model.
// SQLite has no enum type; columns constrained by an inline
// CHECK (col IN (...)) clause are recovered as enums named
// <table>_<column>.
func (c *sqliteConn) Introspect(ctx context.Context) (*schema.Schema, []validation.Warning, error) {
	s := &schema.Schema{Version: "1"}
	var warnings []validation.Warning

	tables, err := c.introspectTables(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("introspecting tables: %w", err)
	}

	for _, t := range tables {
		table := schema.Table{Name: t.name}

		enums := enumChecksFromSQL(t.sql)
		w, err := c.introspectColumns(ctx, &table, t, enums)
		if err != nil {
			return nil, nil, fmt.Errorf("introspecting columns of %s: %w", t.name, err)
		}
		warnings = append(warnings, w...)

		for col, values := range enums {
			name := t.name + "_" + col
			if s.Enum(name) == nil {
				s.Enums = append(s.Enums, schema.EnumDefinition{Name: name, Values: values})
			}
		}

		if err := c.introspectIndexes(ctx, &table); err != nil {
			return nil, nil, fmt.Errorf("introspecting indexes of %s: %w", t.name, err)
		}
		if err := c.introspectForeignKeys(ctx, &table); err != nil {
			return nil, nil, fmt.Errorf("introspecting foreign keys of %s: %w", t.name, err)
		}

		s.Tables = append(s.Tables, table)
	}

	return s, warnings, nil
}

type sqliteTable struct {
	name string
	sql  string
}

func (c *sqliteConn) introspectTables(ctx context.Context) ([]sqliteTable, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, sql
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name <> ?
		ORDER BY name`, LedgerTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []sqliteTable
	for rows.Next() {
		var t sqliteTable
		if err := rows.Scan(&t.name, &t.sql); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (c *sqliteConn) introspectColumns(ctx context.Context, table *schema.Table, t sqliteTable, enums map[string][]string) ([]validation.Warning, error) {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%q)", t.name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	autoIncrement := strings.Contains(strings.ToUpper(t.sql), "AUTOINCREMENT")

	var warnings []validation.Warning
	var pkCols []string
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			defaultVal       *string
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}

		col := schema.Column{Name: name, Nullable: notNull == 0}

		if _, ok := enums[name]; ok {
			col.Type = sqltype.Enum{Name: t.name + "_" + name}
		} else {
			mapped, err := sqltype.FromSQL(typ, sqltype.Metadata{}, sqltype.SQLite)
			if err != nil {
				mapped = sqltype.Text{}
				warnings = append(warnings, validation.Warning{
					Table:   t.name,
					Column:  name,
					Message: fmt.Sprintf("unknown column type %q; exported as text", typ),
				})
			}
			col.Type = mapped
		}

		if pk > 0 {
			pkCols = append(pkCols, name)
			// Rowid alias: single INTEGER PRIMARY KEY AUTOINCREMENT column.
			if autoIncrement {
				if _, isInt := col.Type.(sqltype.Integer); isInt {
					col.AutoIncrement = true
					col.Nullable = false
				}
			}
		}
		if defaultVal != nil && !col.AutoIncrement {
			col.Default = unquoteSQLiteDefault(*defaultVal)
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(pkCols) > 0 {
		table.Constraints = append([]schema.Constraint{schema.PrimaryKey{Columns: pkCols}}, table.Constraints...)
	}
	return warnings, nil
}

// unquoteSQLiteDefault recovers the declared default from the literal
// PRAGMA table_info reports.
func unquoteSQLiteDefault(v string) *string {
	if len(v) >= 2 && strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}
	return &v
}

// enumCheckPattern matches the inline CHECK clause the SQLite generator
// emits for enum columns: CHECK (status IN ('active', 'banned')).
var enumCheckPattern = regexp.MustCompile(`CHECK \((\w+) IN \(([^)]*)\)\)`)

// enumChecksFromSQL recovers emulated enum columns from a CREATE TABLE
// statement, keyed by column name.
func enumChecksFromSQL(createSQL string) map[string][]string {
	matches := enumCheckPattern.FindAllStringSubmatch(createSQL, -1)
	if len(matches) == 0 {
		return nil
	}
	enums := make(map[string][]string, len(matches))
	for _, m := range matches {
		var values []string
		for _, part := range strings.Split(m[2], ",") {
			part = strings.TrimSpace(part)
			if len(part) >= 2 && strings.HasPrefix(part, "'") && strings.HasSuffix(part, "'") {
				values = append(values, strings.ReplaceAll(part[1:len(part)-1], "''", "'"))
			}
		}
		if len(values) > 0 {
			enums[m[1]] = values
		}
	}
	return enums
}

func (c *sqliteConn) introspectIndexes(ctx context.Context, table *schema.Table) error {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA index_list(%q)", table.Name))
	if err != nil {
		return err
	}

	type indexEntry struct {
		name   string
		unique bool
		origin string
	}
	var entries []indexEntry
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1, origin: origin})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, e := range entries {
		cols, err := c.indexColumns(ctx, e.name)
		if err != nil {
			return err
		}
		switch e.origin {
		case "c":
			table.Indexes = append(table.Indexes, schema.Index{
				Name:    e.name,
				Columns: cols,
				Unique:  e.unique,
			})
		case "u":
			table.Constraints = append(table.Constraints, schema.Unique{
				Name:    e.name,
				Columns: cols,
			})
		}
		// origin "pk" is covered by the table_info pass.
	}
	return nil
}

func (c *sqliteConn) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA index_info(%q)", index))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var seqno, cid int
		var name string
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (c *sqliteConn) introspectForeignKeys(ctx context.Context, table *schema.Table) error {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA foreign_key_list(%q)", table.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	// Composite keys share an id across rows ordered by seq.
	grouped := make(map[int]*schema.ForeignKey)
	var order []int
	for rows.Next() {
		var (
			id, seq                         int
			refTable, from, to              string
			onUpdate, onDelete, matchClause string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchClause); err != nil {
			return err
		}
		fk, exists := grouped[id]
		if !exists {
			fk = &schema.ForeignKey{
				Name:            fmt.Sprintf("fk_%s_%s", table.Name, refTable),
				ReferencedTable: refTable,
			}
			grouped[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, to)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range order {
		table.Constraints = append(table.Constraints, *grouped[id])
	}
	return nil
}
