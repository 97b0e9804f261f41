package db

import (
	"context"
	"fmt"
	"time"

	"github.com/schemaforge/schemaforge/internal/config"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// LedgerTable tracks applied migrations inside the target database
// itself, so every client of that database agrees on its state.
const LedgerTable = "schemaforge_migrations"

// AppliedMigration is one ledger row.
type AppliedMigration struct {
	Version   string
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Conn is a dialect-specific database handle. Execution and ledger
// bookkeeping live here; SQL generation never touches a connection.
type Conn interface {
	Dialect() sqltype.Dialect

	// ExecScript runs a full migration script. Server dialects wrap it
	// in one transaction; SQLite scripts manage their own transaction
	// because PRAGMA foreign_keys cannot run inside one.
	ExecScript(ctx context.Context, script string) error

	EnsureLedger(ctx context.Context) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
	RecordApplied(ctx context.Context, m AppliedMigration) error
	RemoveApplied(ctx context.Context, version string) error

	// Introspect reads the live schema back into the declarative model.
	// Unknown column types degrade to TEXT with a warning instead of
	// failing the export.
	Introspect(ctx context.Context) (*schema.Schema, []validation.Warning, error)

	Close() error
}

// Connect opens a handle for the configured dialect.
func Connect(ctx context.Context, d sqltype.Dialect, cfg *config.DatabaseConfig) (Conn, error) {
	switch d {
	case sqltype.Postgres:
		return connectPostgres(ctx, cfg)
	case sqltype.MySQL:
		return connectMySQL(ctx, cfg)
	case sqltype.SQLite:
		return connectSQLite(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported dialect %q", d)
}

// AppliedSet indexes ledger rows by version for pending-migration math.
func AppliedSet(rows []AppliedMigration) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[r.Version] = true
	}
	return set
}
