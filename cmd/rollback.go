package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/lock"
	"github.com/schemaforge/schemaforge/internal/migration"
	"github.com/schemaforge/schemaforge/internal/state"
	"github.com/schemaforge/schemaforge/internal/tui"
)

var (
	rollbackSteps int
	rollbackYes   bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Run the down scripts of the most recently applied migrations, newest
first, and remove them from the ledger. Rollbacks can lose data written
since the migration was applied, so each one asks for consent.`,
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
		applied, err := conn.Applied(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("Nothing to roll back.")
			return nil
		}

		steps := rollbackSteps
		if steps > len(applied) {
			steps = len(applied)
		}
		store := migration.NewStore(cfg.Schema.MigrationsDir)

		// Newest first.
		for i := 0; i < steps; i++ {
			row := applied[len(applied)-1-i]

			m, err := store.Load(row.Version)
			if err != nil {
				return fmt.Errorf("loading migration %s: %w", row.Version, err)
			}
			if err := migration.VerifyChecksum(m, row.Checksum); err != nil {
				return fmt.Errorf("refusing rollback: %w", err)
			}
			if m.DownSQL == "" {
				return fmt.Errorf("migration %s has no down script", row.Version)
			}

			if !rollbackYes {
				ok, err := tui.Confirm(
					fmt.Sprintf("Roll back migration %s", row.Version),
					"Data written since this migration was applied may be lost.")
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("rollback of %s refused", row.Version)
				}
			}

			fmt.Printf("Rolling back %s...\n", row.Version)
			if err := conn.ExecScript(ctx, m.DownSQL); err != nil {
				return fmt.Errorf("rolling back %s: %w", row.Version, err)
			}
			if err := conn.RemoveApplied(ctx, row.Version); err != nil {
				return err
			}
			logger.Info("migration rolled back", "version", row.Version)
		}

		st, err := state.Load("")
		if err != nil {
			return err
		}
		if steps < len(applied) {
			st.LastApplied = applied[len(applied)-1-steps].Version
		} else {
			st.LastApplied = ""
		}
		return st.Save("")
	},
}

func init() {
	rollbackCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")
	rollbackCmd.Flags().BoolVar(&rollbackYes, "yes", false, "assume yes for every prompt")
	rootCmd.AddCommand(rollbackCmd)
}
