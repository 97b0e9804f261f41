package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/export"
	"github.com/schemaforge/schemaforge/internal/report"
	"github.com/schemaforge/schemaforge/internal/state"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the live database schema to a declaration file",
	Long: `Introspect the connected database and write its schema as a
declarative YAML document, the starting point for adopting an existing
database. Unknown column types are exported as text with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dialect, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = cfg.Schema.File
		}

		ctx := context.Background()
		conn, err := openConn(ctx, cfg, dialect)
		if err != nil {
			return err
		}
		defer conn.Close()

		res, err := export.Run(ctx, conn, path, logger)
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d table(s) and %d enum(s) to %s\n", res.Tables, res.Enums, path)
		if len(res.Warnings) > 0 {
			fmt.Print(report.FormatWarnings(res.Warnings))
		}

		st, err := state.Load("")
		if err != nil {
			return err
		}
		st.ExportedAt = time.Now().UTC()
		return st.Save("")
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "destination file (default: the configured schema file)")
	rootCmd.AddCommand(exportCmd)
}
