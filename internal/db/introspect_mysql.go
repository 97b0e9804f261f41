package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// Introspect reads the connected database back into the declarative
// model. Inline ENUM columns have no named type in MySQL, so each one
// gets a synthesized definition named <table>_<column>.
func (c *mysqlConn) Introspect(ctx context.Context) (*schema.Schema, []validation.Warning, error) {
	s := &schema.Schema{Version: "1"}
	var warnings []validation.Warning

	names, err := c.introspectTableNames(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("introspecting tables: %w", err)
	}

	tableMap := make(map[string]*schema.Table, len(names))
	for _, name := range names {
		s.Tables = append(s.Tables, schema.Table{Name: name})
	}
	for i := range s.Tables {
		tableMap[s.Tables[i].Name] = &s.Tables[i]
	}

	w, err := c.introspectColumns(ctx, s, tableMap)
	if err != nil {
		return nil, nil, fmt.Errorf("introspecting columns: %w", err)
	}
	warnings = append(warnings, w...)

	if err := c.introspectKeys(ctx, tableMap); err != nil {
		return nil, nil, fmt.Errorf("introspecting keys: %w", err)
	}
	if err := c.introspectIndexes(ctx, tableMap); err != nil {
		return nil, nil, fmt.Errorf("introspecting indexes: %w", err)
	}

	return s, warnings, nil
}

func (c *mysqlConn) introspectTableNames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		  AND TABLE_TYPE = 'BASE TABLE'
		  AND TABLE_NAME <> ?
		ORDER BY TABLE_NAME`, c.database, LedgerTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *mysqlConn) introspectColumns(ctx context.Context, s *schema.Schema, tableMap map[string]*schema.Table) ([]validation.Warning, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT
			TABLE_NAME,
			COLUMN_NAME,
			DATA_TYPE,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_DEFAULT,
			EXTRA,
			CHARACTER_MAXIMUM_LENGTH,
			NUMERIC_PRECISION,
			NUMERIC_SCALE
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION`, c.database)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []validation.Warning
	for rows.Next() {
		var (
			tableName, colName, dataType, columnType string
			nullable, extra                          string
			defaultVal                               *string
			maxLen, precision, scale                 *int
		)
		if err := rows.Scan(&tableName, &colName, &dataType, &columnType,
			&nullable, &defaultVal, &extra, &maxLen, &precision, &scale); err != nil {
			return nil, err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}

		meta := sqltype.Metadata{
			CharMaxLength:    maxLen,
			NumericPrecision: precision,
			NumericScale:     scale,
		}
		if strings.EqualFold(dataType, "enum") {
			// Inline enum: register a synthesized definition so the
			// exported document declares it like any other enum.
			enumName := tableName + "_" + colName
			meta.UDTName = enumName
			meta.EnumValues = parseEnumValues(columnType)
			if s.Enum(enumName) == nil {
				s.Enums = append(s.Enums, schema.EnumDefinition{
					Name:   enumName,
					Values: meta.EnumValues,
				})
			}
		}
		if columnType == "tinyint(1)" {
			// information_schema reports precision 3 for TINYINT(1); force
			// the boolean reading the mapper keys on.
			one := 1
			meta.NumericPrecision = &one
		}

		typ, err := sqltype.FromSQL(dataType, meta, sqltype.MySQL)
		if err != nil {
			typ = sqltype.Text{}
			warnings = append(warnings, validation.Warning{
				Table:   tableName,
				Column:  colName,
				Message: fmt.Sprintf("unknown column type %q; exported as text", columnType),
			})
		}

		autoIncrement := strings.Contains(extra, "auto_increment")
		col := schema.Column{
			Name:          colName,
			Type:          typ,
			Nullable:      nullable == "YES",
			AutoIncrement: autoIncrement,
		}
		if !autoIncrement && defaultVal != nil {
			v := *defaultVal
			col.Default = &v
		}
		t.Columns = append(t.Columns, col)
	}
	return warnings, rows.Err()
}

// parseEnumValues extracts the value list from a COLUMN_TYPE of the
// form enum('a','b','it''s'). Doubled quotes inside a value unescape
// to a single quote.
func parseEnumValues(columnType string) []string {
	open := strings.IndexByte(columnType, '(')
	end := strings.LastIndexByte(columnType, ')')
	if open < 0 || end <= open {
		return nil
	}
	body := columnType[open+1 : end]

	var values []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\'' && !inQuote:
			inQuote = true
		case ch == '\'' && inQuote:
			if i+1 < len(body) && body[i+1] == '\'' {
				cur.WriteByte('\'')
				i++
				continue
			}
			inQuote = false
			values = append(values, cur.String())
			cur.Reset()
		case inQuote:
			cur.WriteByte(ch)
		}
	}
	return values
}

// introspectKeys reads primary, foreign, and unique key constraints in
// one pass over information_schema.
func (c *mysqlConn) introspectKeys(ctx context.Context, tableMap map[string]*schema.Table) error {
	rows, err := c.db.QueryContext(ctx, `
		SELECT
			tc.TABLE_NAME,
			tc.CONSTRAINT_NAME,
			tc.CONSTRAINT_TYPE,
			kcu.COLUMN_NAME,
			COALESCE(kcu.REFERENCED_TABLE_NAME, ''),
			COALESCE(kcu.REFERENCED_COLUMN_NAME, '')
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
		  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		  AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		  AND tc.TABLE_NAME = kcu.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = ?
		  AND tc.TABLE_NAME <> ?
		ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`,
		c.database, LedgerTable)
	if err != nil {
		return err
	}
	defer rows.Close()

	type keyID struct{ table, constraint, kind string }
	type keyRows struct {
		columns    []string
		refTable   string
		refColumns []string
	}
	grouped := make(map[keyID]*keyRows)
	var order []keyID

	for rows.Next() {
		var tableName, constraintName, kind, column, refTable, refColumn string
		if err := rows.Scan(&tableName, &constraintName, &kind, &column, &refTable, &refColumn); err != nil {
			return err
		}
		id := keyID{tableName, constraintName, kind}
		k, exists := grouped[id]
		if !exists {
			k = &keyRows{refTable: refTable}
			grouped[id] = k
			order = append(order, id)
		}
		k.columns = append(k.columns, column)
		if refColumn != "" {
			k.refColumns = append(k.refColumns, refColumn)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range order {
		t, ok := tableMap[id.table]
		if !ok {
			continue
		}
		k := grouped[id]
		switch id.kind {
		case "PRIMARY KEY":
			t.Constraints = append([]schema.Constraint{schema.PrimaryKey{Columns: k.columns}}, t.Constraints...)
		case "FOREIGN KEY":
			t.Constraints = append(t.Constraints, schema.ForeignKey{
				Name:              id.constraint,
				Columns:           k.columns,
				ReferencedTable:   k.refTable,
				ReferencedColumns: k.refColumns,
			})
		case "UNIQUE":
			t.Constraints = append(t.Constraints, schema.Unique{
				Name:    id.constraint,
				Columns: k.columns,
			})
		}
	}
	return nil
}

// introspectIndexes reads standalone indexes. PRIMARY and unique
// constraint indexes are skipped; those surface as constraints.
func (c *mysqlConn) introspectIndexes(ctx context.Context, tableMap map[string]*schema.Table) error {
	rows, err := c.db.QueryContext(ctx, `
		SELECT st.TABLE_NAME, st.INDEX_NAME, st.NON_UNIQUE, st.COLUMN_NAME
		FROM information_schema.STATISTICS st
		WHERE st.TABLE_SCHEMA = ?
		  AND st.INDEX_NAME <> 'PRIMARY'
		  AND st.TABLE_NAME <> ?
		  AND NOT EXISTS (
			SELECT 1 FROM information_schema.TABLE_CONSTRAINTS tc
			WHERE tc.TABLE_SCHEMA = st.TABLE_SCHEMA
			  AND tc.TABLE_NAME = st.TABLE_NAME
			  AND tc.CONSTRAINT_NAME = st.INDEX_NAME
		  )
		ORDER BY st.TABLE_NAME, st.INDEX_NAME, st.SEQ_IN_INDEX`,
		c.database, LedgerTable)
	if err != nil {
		return err
	}
	defer rows.Close()

	type idxKey struct{ table, index string }
	grouped := make(map[idxKey]*schema.Index)
	var order []idxKey

	for rows.Next() {
		var tableName, indexName, colName string
		var nonUnique int
		if err := rows.Scan(&tableName, &indexName, &nonUnique, &colName); err != nil {
			return err
		}
		k := idxKey{tableName, indexName}
		idx, exists := grouped[k]
		if !exists {
			idx = &schema.Index{Name: indexName, Unique: nonUnique == 0}
			grouped[k] = idx
			order = append(order, k)
		}
		idx.Columns = append(idx.Columns, colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.Indexes = append(t.Indexes, *grouped[k])
		}
	}
	return nil
}
