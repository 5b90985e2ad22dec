package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inkpress/internal/accounts"
	"inkpress/internal/apperr"
	"inkpress/internal/store"
)

var (
	superuserEmail    string
	superuserPassword string
)

var superuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a verified staff superuser",
	Long: `Create a verified staff superuser.

The password may be given with --password or the INKPRESS_SUPERUSER_PASSWORD
environment variable. It must pass the same policy as registration.

Examples:
  inkpress createsuperuser --email admin@example.com --password 'S3cure!pass'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := superuserPassword
		if password == "" {
			password = os.Getenv("INKPRESS_SUPERUSER_PASSWORD")
		}
		if password == "" {
			return errors.New("a password is required (--password or INKPRESS_SUPERUSER_PASSWORD)")
		}
		if msgs := accounts.CheckPassword(password, superuserEmail); len(msgs) > 0 {
			return fmt.Errorf("password rejected: %s", strings.Join(msgs, " "))
		}

		cfg, err := setup()
		if err != nil {
			return err
		}
		db, err := openDB(cfg, true)
		if err != nil {
			return err
		}
		defer db.Close()

		a, err := store.NewAccountStore(db).CreateSuperuser(cmd.Context(), superuserEmail, password)
		if verr, ok := apperr.AsValidation(err); ok {
			return fmt.Errorf("create superuser: %v", verr.Fields)
		}
		if err != nil {
			return err
		}
		slog.Info("superuser created", "account_id", a.ID, "email", a.Email)
		return nil
	},
}

func init() {
	superuserCmd.Flags().StringVar(&superuserEmail, "email", "", "Email address (required)")
	superuserCmd.Flags().StringVar(&superuserPassword, "password", "", "Password")
	_ = superuserCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(superuserCmd)
}
