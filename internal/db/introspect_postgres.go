package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// Introspect reads the public schema back into the declarative model.
func (c *postgresConn) Introspect(ctx context.Context) (*schema.Schema, []validation.Warning, error) {
	s := &schema.Schema{Version: "1"}
	var warnings []validation.Warning

	enums, err := c.introspectEnums(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("introspecting enums: %w", err)
	}
	s.Enums = enums

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

	w, err := c.introspectColumns(ctx, tableMap)
	if err != nil {
		return nil, nil, fmt.Errorf("introspecting columns: %w", err)
	}
	warnings = append(warnings, w...)

	if err := c.introspectPrimaryKeys(ctx, tableMap); err != nil {
		return nil, nil, fmt.Errorf("introspecting primary keys: %w", err)
	}
	if err := c.introspectForeignKeys(ctx, tableMap); err != nil {
		return nil, nil, fmt.Errorf("introspecting foreign keys: %w", err)
	}
	if err := c.introspectUniqueConstraints(ctx, tableMap); err != nil {
		return nil, nil, fmt.Errorf("introspecting unique constraints: %w", err)
	}
	if err := c.introspectCheckConstraints(ctx, tableMap); err != nil {
		return nil, nil, fmt.Errorf("introspecting check constraints: %w", err)
	}
	if err := c.introspectIndexes(ctx, tableMap); err != nil {
		return nil, nil, fmt.Errorf("introspecting indexes: %w", err)
	}

	return s, warnings, nil
}

func (c *postgresConn) introspectTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = 'public'
		  AND c.relkind = 'r'
		  AND c.relname <> $1
		ORDER BY c.relname`

	rows, err := c.pool.Query(ctx, query, LedgerTable)
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

func (c *postgresConn) introspectEnums(ctx context.Context) ([]schema.EnumDefinition, error) {
	query := `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = 'public'
		ORDER BY t.typname, e.enumsortorder`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enums []schema.EnumDefinition
	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return nil, err
		}
		if len(enums) == 0 || enums[len(enums)-1].Name != name {
			enums = append(enums, schema.EnumDefinition{Name: name})
		}
		enums[len(enums)-1].Values = append(enums[len(enums)-1].Values, label)
	}
	return enums, rows.Err()
}

func (c *postgresConn) introspectColumns(ctx context.Context, tableMap map[string]*schema.Table) ([]validation.Warning, error) {
	query := `
		SELECT
			table_name,
			column_name,
			data_type,
			udt_name,
			is_nullable,
			column_default,
			is_identity,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []validation.Warning
	for rows.Next() {
		var (
			tableName, colName, dataType, udtName string
			nullable, identity                    string
			defaultVal                            *string
			maxLen, precision, scale              *int
		)
		if err := rows.Scan(&tableName, &colName, &dataType, &udtName, &nullable,
			&defaultVal, &identity, &maxLen, &precision, &scale); err != nil {
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
			UDTName:          udtName,
		}
		typ, err := sqltype.FromSQL(dataType, meta, sqltype.Postgres)
		if err != nil {
			typ = sqltype.Text{}
			warnings = append(warnings, validation.Warning{
				Table:   tableName,
				Column:  colName,
				Message: fmt.Sprintf("unknown column type %q; exported as text", dataType),
			})
		}

		autoIncrement := identity == "YES" || isSequenceDefault(defaultVal)
		col := schema.Column{
			Name:          colName,
			Type:          typ,
			Nullable:      nullable == "YES",
			AutoIncrement: autoIncrement,
		}
		if !autoIncrement {
			col.Default = normalizePostgresDefault(defaultVal)
		}
		t.Columns = append(t.Columns, col)
	}
	return warnings, rows.Err()
}

func isSequenceDefault(defaultVal *string) bool {
	return defaultVal != nil && strings.HasPrefix(*defaultVal, "nextval(")
}

// normalizePostgresDefault strips the ::type cast PostgreSQL appends to
// literal defaults and unquotes string literals, recovering the value
// as it was declared.
func normalizePostgresDefault(defaultVal *string) *string {
	if defaultVal == nil {
		return nil
	}
	v := *defaultVal
	if i := strings.Index(v, "::"); i > 0 {
		v = v[:i]
	}
	if len(v) >= 2 && strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}
	return &v
}

func (c *postgresConn) introspectPrimaryKeys(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		ORDER BY tc.table_name, kcu.ordinal_position`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	pks := make(map[string][]string)
	for rows.Next() {
		var tableName, colName string
		if err := rows.Scan(&tableName, &colName); err != nil {
			return err
		}
		pks[tableName] = append(pks[tableName], colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for name, cols := range pks {
		if t, ok := tableMap[name]; ok {
			t.Constraints = append([]schema.Constraint{schema.PrimaryKey{Columns: cols}}, t.Constraints...)
		}
	}
	return nil
}

func (c *postgresConn) introspectForeignKeys(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			tc.table_name,
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		  AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	// Composite foreign keys arrive as one row per column; group them
	// by constraint name while keeping encounter order.
	type fkKey struct{ table, constraint string }
	grouped := make(map[fkKey]*schema.ForeignKey)
	var order []fkKey

	for rows.Next() {
		var tableName, constraintName, column, refTable, refColumn string
		if err := rows.Scan(&tableName, &constraintName, &column, &refTable, &refColumn); err != nil {
			return err
		}
		k := fkKey{tableName, constraintName}
		fk, exists := grouped[k]
		if !exists {
			fk = &schema.ForeignKey{Name: constraintName, ReferencedTable: refTable}
			grouped[k] = fk
			order = append(order, k)
		}
		fk.Columns = append(fk.Columns, column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.Constraints = append(t.Constraints, *grouped[k])
		}
	}
	return nil
}

func (c *postgresConn) introspectUniqueConstraints(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT tc.table_name, tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
		  AND tc.table_schema = 'public'
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	type uqKey struct{ table, constraint string }
	grouped := make(map[uqKey]*schema.Unique)
	var order []uqKey

	for rows.Next() {
		var tableName, constraintName, column string
		if err := rows.Scan(&tableName, &constraintName, &column); err != nil {
			return err
		}
		k := uqKey{tableName, constraintName}
		uq, exists := grouped[k]
		if !exists {
			uq = &schema.Unique{Name: constraintName}
			grouped[k] = uq
			order = append(order, k)
		}
		uq.Columns = append(uq.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.Constraints = append(t.Constraints, *grouped[k])
		}
	}
	return nil
}

func (c *postgresConn) introspectCheckConstraints(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT tc.table_name, tc.constraint_name, cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
		  ON tc.constraint_name = cc.constraint_name
		  AND tc.constraint_schema = cc.constraint_schema
		WHERE tc.constraint_type = 'CHECK'
		  AND tc.table_schema = 'public'
		  AND tc.constraint_name NOT LIKE '%_not_null'
		ORDER BY tc.table_name, tc.constraint_name`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, constraintName, clause string
		if err := rows.Scan(&tableName, &constraintName, &clause); err != nil {
			return err
		}
		if t, ok := tableMap[tableName]; ok {
			t.Constraints = append(t.Constraints, schema.Check{
				Name:       constraintName,
				Expression: clause,
			})
		}
	}
	return rows.Err()
}

// introspectIndexes reads standalone indexes, skipping those that back
// primary key or unique constraints (exported as constraints instead).
func (c *postgresConn) introspectIndexes(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			t.relname AS table_name,
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			a.attname AS column_name
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = 'public'
		  AND NOT ix.indisprimary
		  AND NOT EXISTS (
			SELECT 1 FROM pg_constraint con WHERE con.conindid = i.oid
		  )
		ORDER BY t.relname, i.relname, array_position(ix.indkey, a.attnum)`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	type idxKey struct{ table, index string }
	grouped := make(map[idxKey]*schema.Index)
	var order []idxKey

	for rows.Next() {
		var tableName, indexName, colName string
		var isUnique bool
		if err := rows.Scan(&tableName, &indexName, &isUnique, &colName); err != nil {
			return err
		}
		k := idxKey{tableName, indexName}
		idx, exists := grouped[k]
		if !exists {
			idx = &schema.Index{Name: indexName, Unique: isUnique}
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
