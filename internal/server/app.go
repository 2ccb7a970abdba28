// Package server wires the heartwall server: database and migrations, the
// blob backend, the fan-out hub and the HTTP API, and runs them until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/heartwall/internal/logging"
	"github.com/dmitrijs2005/heartwall/internal/server/blobstore"
	"github.com/dmitrijs2005/heartwall/internal/server/config"
	"github.com/dmitrijs2005/heartwall/internal/server/fanout"
	"github.com/dmitrijs2005/heartwall/internal/server/httpapi"
	"github.com/dmitrijs2005/heartwall/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/heartwall/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	hub    *fanout.Hub
	api    *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	driverName, err := repomanager.SQLDriverName(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, blobDir, err := newBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	hub := fanout.NewHub(c.SubscriberBuffer, logger)
	svc := services.NewMemoryService(db, rm, blobstore.Instrument(store), hub, logger)
	api := httpapi.New(httpapi.Options{
		Addr:            c.HTTPAddr,
		CORSOrigins:     c.CORSOrigins,
		MaxUploadBytes:  c.MaxUploadBytes,
		ShutdownTimeout: c.ShutdownTimeout,
		BlobDir:         blobDir,
		TLSDomains:      c.TLSDomains,
		TLSCacheDir:     c.TLSCacheDir,
	}, svc, hub, logger)

	logger.Info(ctx, "app initialised", "db", c.DatabaseDriver, "blob", store.Backend())

	return &App{config: c, logger: logger, db: db, hub: hub, api: api}, nil
}

// newBlobStore returns the configured backend and, for the local backend,
// the directory the HTTP layer should serve.
func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, string, error) {
	switch c.BlobBackend {
	case blobstore.BackendS3:
		s, err := blobstore.NewS3Store(ctx, blobstore.S3Options{
			AccessKey:     c.S3RootUser,
			SecretKey:     c.S3RootPassword,
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			BaseEndpoint:  c.S3BaseEndpoint,
			PublicBaseURL: c.S3PublicBaseURL,
		})
		return s, "", err
	case blobstore.BackendGCS:
		s, err := blobstore.NewGCSStore(ctx, blobstore.GCSOptions{
			Bucket:        c.GCSBucket,
			Endpoint:      c.GCSEndpoint,
			PublicBaseURL: c.GCSPublicBaseURL,
		})
		return s, "", err
	case blobstore.BackendLocal:
		s, err := blobstore.NewLocalStore(c.LocalBlobDir, c.LocalBlobBaseURL)
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	}
	return nil, "", fmt.Errorf("unknown blob backend %q", c.BlobBackend)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run starts the hub before the HTTP listener so that no subscriber can
// connect to an uninitialised channel, and blocks until ctx is cancelled
// or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	app.hub.Start()

	var wg sync.WaitGroup
	var runErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.api.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			runErr = err
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close", "error", err.Error())
	}
	app.logger.Info(context.Background(), "app stopped")
	return runErr
}
