package commands

import (
	"database/sql"
	"log/slog"

	"github.com/spf13/cobra"

	"inkpress/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo data",
	Long: `Insert a verified demo account with categories, tags and ten posts.
Does nothing when the demo account already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		db, err := openDB(cfg, true)
		if err != nil {
			return err
		}
		defer db.Close()
		return seedDB(db)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seedDB(db *sql.DB) error {
	if err := database.Seed(db); err != nil {
		return err
	}
	slog.Info("demo data ready", "email", database.SeedEmail)
	return nil
}
