// Package server initializes and runs the SnapVault server. It opens the
// database, runs migrations, selects the blob store backend, and serves the
// HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/blobstore"
	"github.com/dmitrijs2005/snapvault/internal/logging"
	"github.com/dmitrijs2005/snapvault/internal/server/config"
	"github.com/dmitrijs2005/snapvault/internal/server/httpapi"
	"github.com/dmitrijs2005/snapvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/snapvault/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newBlobStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	vaultSvc := services.NewVaultService(db, repos, store, logger)
	exportSvc := services.NewExportService(db, repos, store, cfg.ExportConcurrency, cfg.TransferTimeout, logger)

	handler := httpapi.NewRouter(cfg, httpapi.NewHandler(vaultSvc, exportSvc, cfg, logger))

	return &App{config: cfg, logger: logger, db: db, handler: handler}, nil
}

func newBlobStore(cfg *config.Config, logger logging.Logger) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "botapi":
		return blobstore.NewBotStore(blobstore.BotStoreOptions{
			BaseURL:      cfg.BotAPIBaseURL,
			Token:        cfg.BotAPIToken,
			ChatID:       cfg.BotAPIChatID,
			MaxSizeBytes: cfg.MaxAssetSizeBytes,
		}, logger), nil
	case "s3":
		return blobstore.NewS3Store(blobstore.S3StoreOptions{
			Region:       cfg.S3Region,
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			MaxSizeBytes: cfg.MaxAssetSizeBytes,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return app.db.Close()
}
