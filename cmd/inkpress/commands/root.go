// Package commands implements the inkpress command line: the HTTP server,
// the mail worker and the database maintenance commands.
package commands

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"inkpress/internal/cache"
	"inkpress/internal/config"
	"inkpress/internal/database"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "inkpress",
	Short: "inkpress - blogging platform backend",
	Long: `inkpress serves the account and blog JSON APIs and the server-rendered
blog pages, and delivers queued email.

Configuration is read from environment variables (APP_*, POSTGRES_*,
VALKEY_*, SMTP_*, S3_*, SECRET_KEY).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// setup loads the configuration and installs the default logger: text in
// development, JSON elsewhere.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level := slog.LevelInfo
	if verbose || cfg.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())
	return cfg, nil
}

// openDB connects to PostgreSQL and, when migrate is set, applies pending
// migrations.
func openDB(cfg *config.Config, migrate bool) (*sql.DB, error) {
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

func openValkey(cfg *config.Config) (*redis.Client, error) {
	return cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
}
