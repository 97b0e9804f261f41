package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/migration"
	"github.com/schemaforge/schemaforge/internal/pipeline"
	"github.com/schemaforge/schemaforge/internal/report"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/state"
	"github.com/schemaforge/schemaforge/internal/validation"
)

var generateAllowDestructive bool

var generateCmd = &cobra.Command{
	Use:   "generate [name]",
	Short: "Generate a migration from pending schema changes",
	Long: `Diff the declared schema against the last snapshot and write a
versioned migration directory with up and down scripts plus metadata.
The snapshot is advanced so the next diff starts from this migration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dialect, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		declared, err := schema.LoadFile(cfg.Schema.File)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}

		result := validation.New(dialect).Validate(declared)
		if !result.Valid() {
			fmt.Print(report.FormatErrors(result.Errors))
			return fmt.Errorf("schema is invalid: %d error(s)", len(result.Errors))
		}

		snapshot, err := loadSnapshot(cfg.Schema.SnapshotFile)
		if err != nil {
			return err
		}

		d, warnings := diff.Detect(snapshot, declared)
		if d.Empty() {
			fmt.Println("No schema changes; nothing to generate.")
			return nil
		}
		if len(warnings) > 0 {
			fmt.Print(report.FormatWarnings(warnings))
		}

		p, err := pipeline.New(dialect, generateAllowDestructive)
		if err != nil {
			return err
		}

		upSQL, upResult, err := p.GenerateUpSQL(&d, snapshot, declared)
		if err != nil {
			var stageErr *pipeline.Error
			if errors.As(err, &stageErr) {
				return fmt.Errorf("generation aborted at %s: %w", stageErr.Stage, stageErr.Err)
			}
			return err
		}
		downSQL, _, err := p.GenerateDownSQL(&d, snapshot, declared)
		if err != nil {
			var stageErr *pipeline.Error
			if errors.As(err, &stageErr) && stageErr.Stage == pipeline.StageEnums {
				return fmt.Errorf("generating down script: %w (rolling an enum change back recreates the type; rerun with --allow-destructive)", err)
			}
			return fmt.Errorf("generating down script: %w", err)
		}
		if len(upResult.Warnings) > 0 {
			fmt.Print(report.FormatWarnings(upResult.Warnings))
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		version := migration.NewVersion(name, time.Now())
		destructive := diff.Destructive(&d)

		m := &migration.Migration{
			Version: version,
			UpSQL:   upSQL,
			DownSQL: downSQL,
			Meta: migration.Metadata{
				Version:     version,
				Name:        name,
				Dialect:     dialect,
				CreatedAt:   time.Now().UTC(),
				Checksum:    migration.Checksum(upSQL),
				Destructive: &destructive,
			},
		}

		store := migration.NewStore(cfg.Schema.MigrationsDir)
		if err := store.Write(m); err != nil {
			return fmt.Errorf("writing migration: %w", err)
		}

		// The snapshot now reflects this migration; the next diff starts
		// from it.
		if err := schema.WriteFile(declared, cfg.Schema.SnapshotFile); err != nil {
			return fmt.Errorf("updating snapshot: %w", err)
		}

		st, err := state.Load("")
		if err != nil {
			return err
		}
		st.LastGenerated = version
		st.SchemaVersion = declared.Version
		if err := st.Save(""); err != nil {
			return err
		}

		logger.Info("migration generated",
			"version", version,
			"dialect", dialect,
			"statements", strings.Count(upSQL, ";"),
			"destructive", destructive.Count())

		fmt.Printf("Generated migration %s\n", version)
		if destructive.HasDestructiveChanges() {
			fmt.Println()
			fmt.Print(report.FormatDestructive(&destructive))
			fmt.Println("\nApplying this migration will require --allow-destructive or interactive consent.")
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateAllowDestructive, "allow-destructive", false,
		"permit statements that can lose data; also needed for enum value additions, whose down script recreates the type")
	rootCmd.AddCommand(generateCmd)
}
