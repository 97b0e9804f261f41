// Package export turns a live database into a declarative schema file.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schemaforge/schemaforge/internal/db"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// Result summarizes one export run.
type Result struct {
	Schema   *schema.Schema
	Warnings []validation.Warning
	Tables   int
	Enums    int
}

// Run introspects the connected database and writes the declaration to
// path. Unknown column types degrade to TEXT and surface as warnings;
// the export itself never fails on them.
func Run(ctx context.Context, conn db.Conn, path string, logger *slog.Logger) (*Result, error) {
	s, warnings, err := conn.Introspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspecting database: %w", err)
	}

	if err := schema.WriteFile(s, path); err != nil {
		return nil, fmt.Errorf("writing schema file: %w", err)
	}

	logger.Info("schema exported",
		"dialect", conn.Dialect(),
		"path", path,
		"tables", len(s.Tables),
		"enums", len(s.Enums),
		"warnings", len(warnings))

	return &Result{
		Schema:   s,
		Warnings: warnings,
		Tables:   len(s.Tables),
		Enums:    len(s.Enums),
	}, nil
}
