// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gorilla/mux"

	httpAdapter "github.com/chizu-dev/chizu/internal/adapters/http"
	"github.com/chizu-dev/chizu/internal/adapters/metrics"
	"github.com/chizu-dev/chizu/internal/adapters/spatialite"
	"github.com/chizu-dev/chizu/internal/adapters/storage"
	tlsAdapter "github.com/chizu-dev/chizu/internal/adapters/tls"
	"github.com/chizu-dev/chizu/internal/adapters/watcher"
	"github.com/chizu-dev/chizu/internal/application"
	"github.com/chizu-dev/chizu/internal/config"
	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ingest"
	"github.com/chizu-dev/chizu/internal/ports/output"
	"github.com/chizu-dev/chizu/internal/projection"
	"github.com/chizu-dev/chizu/internal/tilequery"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Store         *spatialite.Store
	Storage       output.ObjectStorage
	Mirror        *storage.Mirror
	QueryService  *application.TileQueryService
	IngestService *application.IngestService
	HealthService *application.HealthService
	SpoolService  *application.SpoolService
	HTTPServer    *httpAdapter.Server
	TLSServer     *tlsAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector
	MetricsServer *metrics.Server
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("chizu")
		app.MetricsServer = metrics.NewServer(
			cfg.Metrics.Port,
			cfg.Metrics.Path,
			logger,
		)
	}

	var metricsCollector output.MetricsCollector
	if app.Metrics != nil {
		metricsCollector = app.Metrics
	} else {
		metricsCollector = &output.NoOpMetrics{}
	}

	// Open the SpatiaLite store
	store, err := spatialite.Open(ctx, cfg.Store.Path, metricsCollector)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	app.Store = store

	// Initialize source file storage and spool mirror
	if err := os.MkdirAll(cfg.Spool.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}
	objectStorage, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = objectStorage
	app.Mirror = storage.NewMirror(objectStorage, cfg.Spool.Dir, logger)

	// Coordinate transformation and tile query building
	transformer := projection.New()
	builder := tilequery.NewBuilder(transformer)

	// Initialize query service
	app.QueryService = application.NewTileQueryService(
		store,
		builder,
		metricsCollector,
		logger,
	)

	// Initialize ingestion pipeline. Unattended ingestion either replaces
	// existing datasets or leaves them alone, per configuration; the
	// interactive CLI installs its own prompt instead.
	replace := cfg.Spool.Replace
	confirm := func(key domain.DatasetKey, existing int64) bool {
		if !replace {
			logger.Warn("dataset already present, replacement disabled",
				"key", key, "existing", existing)
		}
		return replace
	}
	app.IngestService = application.NewIngestService(
		store,
		ingest.NewTransformer(transformer),
		confirm,
		metricsCollector,
		logger,
	)

	// Initialize health service
	app.HealthService = application.NewHealthService(store, metricsCollector)

	// Initialize spool service
	app.SpoolService = application.NewSpoolService(
		app.IngestService,
		cfg.Spool.Dir,
		cfg.Spool.Interval,
		logger,
	)

	// Initialize HTTP server
	var metricsMW mux.MiddlewareFunc
	if app.Metrics != nil {
		metricsMW = app.Metrics.Middleware
	}
	app.HTTPServer = httpAdapter.NewServer(
		cfg.Server,
		app.QueryService,
		app.HealthService,
		app.SpoolService,
		metricsMW,
		logger,
	)

	// Initialize TLS server if enabled
	if cfg.TLS.Enabled {
		tlsServer, err := tlsAdapter.NewServer(
			tlsAdapter.Config{
				Enabled:  cfg.TLS.Enabled,
				Domains:  cfg.TLS.Domains,
				Email:    cfg.TLS.Email,
				CacheDir: cfg.TLS.CacheDir,
				Staging:  cfg.TLS.Staging,
				DNS: tlsAdapter.DNSConfig{
					SubscriptionID:    cfg.TLS.DNS.SubscriptionID,
					ResourceGroupName: cfg.TLS.DNS.ResourceGroupName,
					ClientID:          cfg.TLS.DNS.ClientID,
				},
			},
			app.HTTPServer.Router(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
		app.TLSServer = tlsServer
	}

	// Initialize spool watcher so dropped files are picked up between scans
	if cfg.Spool.Watch {
		w, err := watcher.New(
			watcher.Config{Dir: cfg.Spool.Dir},
			app.handleSpoolFile,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize spool watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start starts all application components.
func (a *App) Start(ctx context.Context) error {
	// Mirror remote source files into the spool before the first scan
	if _, err := a.Mirror.Sync(ctx); err != nil {
		a.Logger.Warn("failed to mirror source files", "error", err)
	}

	// Start periodic spool scanning
	a.SpoolService.Start(ctx)

	// Start spool watcher
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start spool watcher", "error", err)
		}
	}

	// Start metrics server in background
	if a.MetricsServer != nil {
		go func() {
			if err := a.MetricsServer.Start(); err != nil && err.Error() != "http: Server closed" {
				a.Logger.Error("metrics server error", "error", err)
			}
		}()
	}

	// Start server
	if a.Config.TLS.Enabled && a.TLSServer != nil {
		return a.TLSServer.ListenAndServe(a.Config.Server.Address())
	}
	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	// Stop watcher
	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	// Stop periodic scanning
	a.SpoolService.Stop()

	// Shutdown metrics server
	if a.MetricsServer != nil {
		if err := a.MetricsServer.Shutdown(ctx); err != nil {
			a.Logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	// Close the store
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("store close error", "error", err)
	}

	return nil
}

// handleSpoolFile ingests a file dropped into the spool directory.
func (a *App) handleSpoolFile(ctx context.Context, path string) error {
	processed, err := a.SpoolService.Process(ctx, path)
	if processed {
		a.Logger.Info("ingested spool file", "file", path)
	}
	return err
}

// initStorage initializes the appropriate storage adapter.
func initStorage(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch cfg.Type {
	case "local":
		return storage.NewLocalStorage(cfg.LocalPath), nil

	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case "http":
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
