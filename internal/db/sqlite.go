package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/schemaforge/schemaforge/internal/config"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

type sqliteConn struct {
	db *sql.DB
}

var _ Conn = (*sqliteConn)(nil)

func connectSQLite(ctx context.Context, cfg *config.DatabaseConfig) (Conn, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite requires database.path in the configuration")
	}
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}
	// Recreation scripts toggle PRAGMA foreign_keys; that only works when
	// every statement observes the same connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}
	return &sqliteConn{db: db}, nil
}

func (c *sqliteConn) Dialect() sqltype.Dialect { return sqltype.SQLite }

// ExecScript runs the script as-is. Recreation scripts carry their own
// BEGIN/COMMIT because PRAGMA foreign_keys is a no-op inside a
// transaction; wrapping them again would break that contract. Plain
// scripts get a transaction wrapper here.
func (c *sqliteConn) ExecScript(ctx context.Context, script string) error {
	if strings.Contains(script, "BEGIN TRANSACTION;") {
		if _, err := c.db.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("executing script: %w", err)
		}
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing script: %w", err)
	}
	return tx.Commit()
}

func (c *sqliteConn) EnsureLedger(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, LedgerTable))
	if err != nil {
		return fmt.Errorf("creating ledger table: %w", err)
	}
	return nil
}

func (c *sqliteConn) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT version, name, checksum, applied_at FROM %s ORDER BY version", LedgerTable))
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.Version, &m.Name, &m.Checksum, &m.AppliedAt); err != nil {
			return nil, err
		}
		applied = append(applied, m)
	}
	return applied, rows.Err()
}

func (c *sqliteConn) RecordApplied(ctx context.Context, m AppliedMigration) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)", LedgerTable),
		m.Version, m.Name, m.Checksum, m.AppliedAt)
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", m.Version, err)
	}
	return nil
}

func (c *sqliteConn) RemoveApplied(ctx context.Context, version string) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE version = ?", LedgerTable), version)
	if err != nil {
		return fmt.Errorf("removing ledger entry %s: %w", version, err)
	}
	return nil
}

func (c *sqliteConn) Close() error { return c.db.Close() }
