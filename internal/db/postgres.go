package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemaforge/schemaforge/internal/config"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

type postgresConn struct {
	pool *pgxpool.Pool
}

var _ Conn = (*postgresConn)(nil)

func connectPostgres(ctx context.Context, cfg *config.DatabaseConfig) (Conn, error) {
	poolCfg, err := pgxpool.ParseConfig(PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	return &postgresConn{pool: pool}, nil
}

// PostgresDSN builds a keyword/value DSN. Simple protocol mode lets a
// multi-statement migration script run in a single Exec.
func PostgresDSN(cfg *config.DatabaseConfig) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s default_query_exec_mode=simple_protocol",
		cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password,
	)
	if cfg.SSL {
		return dsn + " sslmode=require"
	}
	return dsn + " sslmode=disable"
}

func (c *postgresConn) Dialect() sqltype.Dialect { return sqltype.Postgres }

func (c *postgresConn) ExecScript(ctx context.Context, script string) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, script); err != nil {
		return fmt.Errorf("executing script: %w", err)
	}
	return tx.Commit(ctx)
}

func (c *postgresConn) EnsureLedger(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			checksum CHAR(64) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		)`, LedgerTable))
	if err != nil {
		return fmt.Errorf("creating ledger table: %w", err)
	}
	return nil
}

func (c *postgresConn) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := c.pool.Query(ctx, fmt.Sprintf(
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

func (c *postgresConn) RecordApplied(ctx context.Context, m AppliedMigration) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(
		"INSERT INTO %s (version, name, checksum, applied_at) VALUES ($1, $2, $3, $4)", LedgerTable),
		m.Version, m.Name, m.Checksum, m.AppliedAt)
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", m.Version, err)
	}
	return nil
}

func (c *postgresConn) RemoveApplied(ctx context.Context, version string) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE version = $1", LedgerTable), version)
	if err != nil {
		return fmt.Errorf("removing ledger entry %s: %w", version, err)
	}
	return nil
}

func (c *postgresConn) Close() error {
	c.pool.Close()
	return nil
}
