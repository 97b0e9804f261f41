package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/report"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/validation"
)

var diffOutput string

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show pending schema changes",
	Long: `Compare the declared schema against the snapshot taken at the last
generation and show what a new migration would contain. A missing
snapshot means everything is new.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		declared, err := schema.LoadFile(cfg.Schema.File)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}
		snapshot, err := loadSnapshot(cfg.Schema.SnapshotFile)
		if err != nil {
			return err
		}

		d, warnings := diff.Detect(snapshot, declared)

		r := report.New(cfg.Dialect, &d, nil)
		if len(warnings) > 0 {
			r.Validation = &validation.Result{Warnings: warnings}
		}
		fmt.Print(report.FormatText(r))

		if diffOutput != "" {
			if err := report.WriteYAML(r, diffOutput); err != nil {
				return err
			}
			fmt.Printf("\nReport written to %s\n", diffOutput)
		}
		return nil
	},
}

// loadSnapshot reads the last-generation snapshot; a missing file is an
// empty schema, so the first diff shows everything as added.
func loadSnapshot(path string) (*schema.Schema, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &schema.Schema{Version: "1"}, nil
	}
	s, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return s, nil
}

func init() {
	diffCmd.Flags().StringVar(&diffOutput, "output", "", "write the diff report to a YAML file")
	rootCmd.AddCommand(diffCmd)
}
