package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/schemaforge/schemaforge/internal/config"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

type mysqlConn struct {
	db       *sql.DB
	database string
}

var _ Conn = (*mysqlConn)(nil)

func connectMySQL(ctx context.Context, cfg *config.DatabaseConfig) (Conn, error) {
	db, err := sql.Open("mysql", MySQLDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging MySQL: %w", err)
	}
	return &mysqlConn{db: db, database: cfg.Database}, nil
}

// MySQLDSN builds a go-sql-driver DSN. multiStatements lets a whole
// migration script run in one Exec; parseTime maps TIMESTAMP columns to
// time.Time for the ledger.
func MySQLDSN(cfg *config.DatabaseConfig) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	if cfg.SSL {
		dsn += "&tls=true"
	}
	return dsn
}

func (c *mysqlConn) Dialect() sqltype.Dialect { return sqltype.MySQL }

// ExecScript runs the script inside a transaction for the row changes
// it may carry; MySQL DDL still auto-commits statement by statement.
func (c *mysqlConn) ExecScript(ctx context.Context, script string) error {
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

func (c *mysqlConn) EnsureLedger(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			checksum CHAR(64) NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, LedgerTable))
	if err != nil {
		return fmt.Errorf("creating ledger table: %w", err)
	}
	return nil
}

func (c *mysqlConn) Applied(ctx context.Context) ([]AppliedMigration, error) {
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

func (c *mysqlConn) RecordApplied(ctx context.Context, m AppliedMigration) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)", LedgerTable),
		m.Version, m.Name, m.Checksum, m.AppliedAt)
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", m.Version, err)
	}
	return nil
}

func (c *mysqlConn) RemoveApplied(ctx context.Context, version string) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE version = ?", LedgerTable), version)
	if err != nil {
		return fmt.Errorf("removing ledger entry %s: %w", version, err)
	}
	return nil
}

func (c *mysqlConn) Close() error { return c.db.Close() }
