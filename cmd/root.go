package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/config"
	"github.com/schemaforge/schemaforge/internal/db"
	"github.com/schemaforge/schemaforge/internal/logging"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "schemaforge",
	Short: "SchemaForge — declarative schema migrations",
	Long: `SchemaForge manages database schemas as code: declare the desired
schema in YAML, diff it against the last generated snapshot, and apply
the generated migrations to PostgreSQL, MySQL, or SQLite.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: schemaforge.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the project configuration and resolves the dialect.
func loadConfig() (*config.Config, sqltype.Dialect, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	d, ok := sqltype.ParseDialect(cfg.Dialect)
	if !ok {
		return nil, "", fmt.Errorf("unsupported dialect %q in config", cfg.Dialect)
	}
	return cfg, d, nil
}

// setupLogger initializes the shared logger; the --log-level flag wins
// over the config file.
func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.Setup(level, cfg.Logging.Directory)
}

// openConn connects to the configured database.
func openConn(ctx context.Context, cfg *config.Config, d sqltype.Dialect) (db.Conn, error) {
	conn, err := db.Connect(ctx, d, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return conn, nil
}
