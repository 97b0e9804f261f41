package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/config"
	"github.com/schemaforge/schemaforge/internal/sqltype"
	"github.com/schemaforge/schemaforge/internal/tui"
)

var (
	initDialect string
	initForce   bool
)

const starterSchema = `version: "1"

tables:
  # users:
  #   columns:
  #     id:
  #       type: integer
  #       auto_increment: true
  #     email:
  #       type: varchar(255)
  #   primary_key: [id]
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a SchemaForge project",
	Long: `Create the project configuration, a starter schema file, and the
migrations directory. Without --dialect this runs an interactive setup form.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		var cfg *config.Config
		if initDialect != "" {
			d, ok := sqltype.ParseDialect(initDialect)
			if !ok {
				return fmt.Errorf("unsupported dialect %q", initDialect)
			}
			cfg = &config.Config{
				Version: config.CurrentVersion,
				Dialect: string(d),
			}
		} else {
			var err error
			cfg, err = tui.RunSetup()
			if err != nil {
				return err
			}
			if cfg == nil {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		// Re-load to pick up the schema path defaults.
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		if _, err := os.Stat(cfg.Schema.File); os.IsNotExist(err) {
			if err := os.WriteFile(cfg.Schema.File, []byte(starterSchema), 0o644); err != nil {
				return fmt.Errorf("writing starter schema: %w", err)
			}
		}
		if err := os.MkdirAll(cfg.Schema.MigrationsDir, 0o755); err != nil {
			return fmt.Errorf("creating migrations directory: %w", err)
		}

		fmt.Printf("Initialized %s project.\n", cfg.Dialect)
		fmt.Printf("  Config:     %s\n", path)
		fmt.Printf("  Schema:     %s\n", cfg.Schema.File)
		fmt.Printf("  Migrations: %s/\n", cfg.Schema.MigrationsDir)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initDialect, "dialect", "", "target dialect (postgresql, mysql, sqlite); skips the interactive form")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}
