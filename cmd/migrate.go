package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/db"
	"github.com/schemaforge/schemaforge/internal/lock"
	"github.com/schemaforge/schemaforge/internal/migration"
	"github.com/schemaforge/schemaforge/internal/report"
	"github.com/schemaforge/schemaforge/internal/state"
	"github.com/schemaforge/schemaforge/internal/tui"
)

var (
	migrateAllowDestructive bool
	migrateYes              bool
	migrateDryRun           bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Apply every migration not yet recorded in the database ledger, in
version order. Destructive migrations are refused unless consent is
given with --allow-destructive or interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dialect, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		guard, err := lock.Acquire("")
		if err != nil {
			return err
		}
		defer guard.Release()

		ctx := context.Background()
		conn, err := openConn(ctx, cfg, dialect)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.EnsureLedger(ctx); err != nil {
			return err
		}
		appliedRows, err := conn.Applied(ctx)
		if err != nil {
			return err
		}
		applied := db.AppliedSet(appliedRows)

		store := migration.NewStore(cfg.Schema.MigrationsDir)
		all, err := store.LoadAll()
		if err != nil {
			return fmt.Errorf("loading migrations: %w", err)
		}
		pending := migration.Pending(all, applied)
		if len(pending) == 0 {
			fmt.Println("Database is up to date.")
			return nil
		}

		fmt.Printf("%d pending migration(s).\n", len(pending))

		for _, m := range pending {
			if err := applyMigration(ctx, conn, m, logger); err != nil {
				return err
			}
		}

		st, err := state.Load("")
		if err != nil {
			return err
		}
		st.LastApplied = pending[len(pending)-1].Version
		return st.Save("")
	},
}

func applyMigration(ctx context.Context, conn db.Conn, m *migration.Migration, logger *slog.Logger) error {
	destructive, known := m.Meta.DestructiveReport()

	// Deny by default. A migration whose metadata predates destructive
	// tracking is treated as destructive.
	if !known || destructive.HasDestructiveChanges() {
		if !migrateAllowDestructive && !migrateYes {
			body := "This migration predates destructive-change tracking."
			if known {
				body = report.FormatDestructive(&destructive)
			}
			ok, err := tui.Confirm(fmt.Sprintf("Migration %s contains destructive changes", m.Version), body)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("migration %s refused: destructive changes denied", m.Version)
			}
		}
	}

	if migrateDryRun {
		fmt.Printf("-- %s (dry run)\n%s\n", m.Version, m.UpSQL)
		return nil
	}

	fmt.Printf("Applying %s...\n", m.Version)
	if err := conn.ExecScript(ctx, m.UpSQL); err != nil {
		return fmt.Errorf("applying %s: %w", m.Version, err)
	}
	if err := conn.RecordApplied(ctx, db.AppliedMigration{
		Version:   m.Version,
		Name:      m.Meta.Name,
		Checksum:  m.Meta.Checksum,
		AppliedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	logger.Info("migration applied", "version", m.Version, "destructive", destructive.Count())
	return nil
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateAllowDestructive, "allow-destructive", false,
		"apply destructive migrations without prompting")
	migrateCmd.Flags().BoolVar(&migrateYes, "yes", false, "assume yes for every prompt")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "print the SQL instead of executing it")
	rootCmd.AddCommand(migrateCmd)
}
