package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/report"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the declared schema",
	Long:  `Check the schema file for structural problems: malformed declarations, dangling references, and constraint violations. All findings are reported in one pass.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dialect, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := schema.LoadFile(cfg.Schema.File)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}

		result := validation.New(dialect).Validate(s)

		if len(result.Warnings) > 0 {
			fmt.Print(report.FormatWarnings(result.Warnings))
		}
		if !result.Valid() {
			fmt.Print(report.FormatErrors(result.Errors))
			return fmt.Errorf("schema is invalid: %d error(s)", len(result.Errors))
		}

		fmt.Printf("Schema is valid: %d table(s), %d enum(s).\n", len(s.Tables), len(s.Enums))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
