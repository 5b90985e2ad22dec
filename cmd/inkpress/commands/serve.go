package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"inkpress/internal/accounts"
	"inkpress/internal/auth"
	"inkpress/internal/blog"
	"inkpress/internal/cache"
	"inkpress/internal/config"
	"inkpress/internal/handlers"
	"inkpress/internal/mail"
	"inkpress/internal/middleware"
	"inkpress/internal/render"
	"inkpress/internal/router"
	"inkpress/internal/session"
	"inkpress/internal/storage"
	"inkpress/internal/store"
)

// Credential endpoints accept authLimit requests per client per window.
const (
	authLimit  = 20
	authWindow = time.Minute
)

var (
	serveWithWorker bool
	serveSeed       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server. Pending migrations are applied on startup.

Examples:
  inkpress serve                 # server plus an embedded mail worker
  inkpress serve --worker=false  # server only, run "inkpress worker" separately
  inkpress serve --seed          # load demo data first`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWorker, "worker", true, "Run the mail worker in-process")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Insert demo data before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	db, err := openDB(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	if serveSeed {
		if err := seedDB(db); err != nil {
			return err
		}
	}

	valkey, err := openValkey(cfg)
	if err != nil {
		return err
	}
	defer valkey.Close()

	media, mediaHandler, err := openMedia(cfg)
	if err != nil {
		return err
	}

	issuer := auth.NewIssuer(cfg.SecretKey, auth.TTLs{
		Access:     cfg.AccessTokenTTL,
		Refresh:    cfg.RefreshTokenTTL,
		Activation: cfg.ActivationTTL,
		Reset:      cfg.ResetTTL,
	})
	queue := mail.NewRedisQueue(valkey, mail.DefaultQueueKey)
	pages := cache.NewPageCache(valkey, cache.DefaultPageTTL)
	secureCookies := !cfg.IsDev()
	sessions := session.NewStore(valkey, secureCookies)

	acctSvc := accounts.NewService(
		store.NewAccountStore(db), store.NewTokenStore(db), store.NewProfileStore(db),
		issuer, queue, media,
	)
	acctSvc.RevokeSessionsWith(sessions)
	blogSvc := blog.NewService(blog.Deps{
		Tx:         store.NewTxManager(db),
		Posts:      store.NewPostStore(db),
		Categories: store.NewCategoryStore(db),
		Tags:       store.NewTagStore(db),
		Comments:   store.NewCommentStore(db),
		Profiles:   store.NewProfileStore(db),
		Media:      media,
		Cache:      pages,
	})

	renderer, err := render.New()
	if err != nil {
		return err
	}

	limiter := middleware.NewSharedRateLimiter(cache.NewRateCounter(valkey), authLimit, authWindow)
	defer limiter.Stop()

	deps := router.Deps{
		Users:         handlers.NewUsers(acctSvc, cfg.BaseURL),
		Blog:          handlers.NewBlog(blogSvc, cfg.PageSize, cfg.BaseURL),
		Views:         handlers.NewViews(renderer, blogSvc, acctSvc, sessions, pages, cfg.HTMLPageSize),
		Auth:          acctSvc,
		Sessions:      sessions,
		AuthLimiter:   limiter,
		SecureCookies: secureCookies,
	}
	if mediaHandler != nil {
		deps.Media, deps.MediaPath = mediaHandler, cfg.MediaURL
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.New(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if serveWithWorker {
		worker := mail.NewWorker(queue, newSender(cfg), cfg.MailWorkers)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	wg.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

// openMedia selects S3 when it is configured and local disk otherwise.
// The returned handler serves disk uploads and is nil for S3.
func openMedia(cfg *config.Config) (storage.Store, http.Handler, error) {
	if cfg.HasS3() {
		s3, err := storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return s3, nil, nil
	}

	disk := storage.NewDisk(cfg.MediaRoot, cfg.MediaURL)
	slog.Warn("s3 storage not configured, storing media on disk", "root", cfg.MediaRoot)
	return disk, http.FileServer(http.Dir(disk.Root())), nil
}
