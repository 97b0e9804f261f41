package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/db"
	"github.com/schemaforge/schemaforge/internal/lock"
	"github.com/schemaforge/schemaforge/internal/migration"
	"github.com/schemaforge/schemaforge/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `List every local migration with its ledger state: applied, pending,
or drifted (the local up script no longer matches the applied checksum).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dialect, err := loadConfig()
		if err != nil {
			return err
		}

		if ls, err := lock.Inspect(""); err == nil && ls.Held {
			fmt.Printf("A migration is in progress (PID %d).\n\n", ls.PID)
		}

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
		byVersion := make(map[string]db.AppliedMigration, len(appliedRows))
		for _, r := range appliedRows {
			byVersion[r.Version] = r
		}

		store := migration.NewStore(cfg.Schema.MigrationsDir)
		all, err := store.LoadAll()
		if err != nil {
			return fmt.Errorf("loading migrations: %w", err)
		}

		pending := 0
		for _, m := range all {
			row, ok := byVersion[m.Version]
			switch {
			case !ok:
				fmt.Printf("  pending  %s\n", m.Version)
				pending++
			case migration.VerifyChecksum(m, row.Checksum) != nil:
				fmt.Printf("  drifted  %s (applied %s)\n", m.Version, row.AppliedAt.Format("2006-01-02 15:04"))
			default:
				fmt.Printf("  applied  %s (%s)\n", m.Version, row.AppliedAt.Format("2006-01-02 15:04"))
			}
			delete(byVersion, m.Version)
		}

		// Ledger entries with no local directory.
		var missing []string
		for version := range byVersion {
			missing = append(missing, version)
		}
		sort.Strings(missing)
		for _, version := range missing {
			fmt.Printf("  missing  %s (in ledger but not on disk)\n", version)
		}

		st, err := state.Load("")
		if err != nil {
			return err
		}
		fmt.Printf("\n%d migration(s), %d pending.\n", len(all), pending)
		if !st.ExportedAt.IsZero() {
			fmt.Printf("Last export: %s\n", st.ExportedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
