// Package server initializes and runs the GophSend reference server. It
// selects the storage backends, mounts the HTTP API, removes expired files
// in the background and shuts down gracefully.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/blobs"
	"github.com/dmitrijs2005/gophsend/internal/server/config"
	"github.com/dmitrijs2005/gophsend/internal/server/httpapi"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophsend/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	fileService *services.FileService
	handler     http.Handler
}

// NewApp wires storage, services and routes. An empty DatabaseDSN keeps
// records in memory.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	var (
		db *sql.DB
		rm repomanager.RepositoryManager
	)
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, records are kept in memory")
		rm = repomanager.NewMemoryRepositoryManager()
	} else {
		var err error
		db, err = repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	fs := services.NewFileService(db, rm, store, c, logger)
	secret := []byte(c.SecretKey)
	handler := httpapi.NewRouter(
		&httpapi.FileHandler{Files: fs, BaseURL: c.BaseURL, Logger: logger},
		&httpapi.FileListHandler{FileLists: services.NewFileListService(db, rm, logger), Logger: logger},
		&httpapi.OAuthHandler{OAuth: services.NewOAuthService(db, rm, c, logger), Logger: logger},
		secret,
		logger,
	)

	return &App{config: c, logger: logger, db: db, fileService: fs, handler: handler}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobs.Store, error) {
	switch c.BlobBackend {
	case "fs":
		return blobs.NewFSStore(c.BlobDir)
	case "s3":
		return blobs.NewS3Store(ctx, blobs.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	}
	return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
}

// Handler is the HTTP API of the app.
func (app *App) Handler() http.Handler {
	return app.handler
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "listening", "addr", srv.Addr, "base_url", app.config.BaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runCleanup removes expired files every interval until ctx is done.
func (app *App) runCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.fileService.Cleanup(ctx); err != nil && ctx.Err() == nil {
				app.logger.Warn(ctx, "cleanup failed", "error", err)
			}
		}
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runCleanup(ctx, app.config.CleanupInterval)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "closing database", "error", err)
		}
	}
	app.logger.Info(ctx, "stopped")
}
