package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"inkpress/internal/config"
	"inkpress/internal/mail"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deliver queued email",
	Long: `Consume the mail task queue in Valkey and deliver each message over SMTP.
In development messages are logged instead of sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.Context())
	},
}

func init() {
	workerCmd.Flags().IntVarP(&workerCount, "concurrency", "c", 0, "Delivery goroutines (default MAIL_WORKERS)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(parent context.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	valkey, err := openValkey(cfg)
	if err != nil {
		return err
	}
	defer valkey.Close()

	n := cfg.MailWorkers
	if workerCount > 0 {
		n = workerCount
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := mail.NewRedisQueue(valkey, mail.DefaultQueueKey)
	if backlog, err := queue.Len(ctx); err != nil {
		slog.Warn("mail queue length unavailable", "error", err)
	} else {
		slog.Info("mail worker starting", "workers", n, "backlog", backlog)
	}
	mail.NewWorker(queue, newSender(cfg), n).Run(ctx)
	return nil
}

// newSender logs mail in development and relays it over SMTP otherwise.
func newSender(cfg *config.Config) mail.Sender {
	if cfg.IsDev() {
		return mail.LogSender{}
	}
	return mail.NewSMTPSender(cfg.SMTPAddr(), cfg.MailFrom, cfg.SMTPUser, cfg.SMTPPassword)
}
