// Package main provides the entry point for the chizu vector tile service.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chizu-dev/chizu/internal/adapters/spatialite"
	"github.com/chizu-dev/chizu/internal/app"
	"github.com/chizu-dev/chizu/internal/application"
	"github.com/chizu-dev/chizu/internal/config"
	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ingest"
	"github.com/chizu-dev/chizu/internal/ports/input"
	"github.com/chizu-dev/chizu/internal/ports/output"
	"github.com/chizu-dev/chizu/internal/projection"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chizu",
	Short: "chizu - administrative boundary tile service",
	Long: `chizu serves administrative boundaries and public facilities of Japan
as GeoJSON vector tiles.

It provides a REST API for slippy-map tile queries over a SpatiaLite store
and ingests prefecture datasets from GeoJSON and shapefile sources.

Features:
  - GeoJSON FeatureCollection tiles with buffered extents
  - Per-prefecture dataset replacement, all-or-nothing
  - Spool directory ingestion with filesystem watching
  - Multiple source backends (local, AWS S3, Azure, HTTP)
  - TLS with automatic certificate management
  - Prometheus metrics`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("chizu %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replace a prefecture dataset from a source file",
}

var ingestAdminCmd = &cobra.Command{
	Use:   "admin --file <file.geojson> --code <NN>",
	Short: "Replace a prefecture's administrative boundaries",
	Long: `Replaces the regions and municipalities of one prefecture from a
GeoJSON source file. The two-digit prefecture code selects the rows being
replaced; existing rows are only removed after confirmation.`,
	Args: cobra.NoArgs,
	RunE: runIngestAdmin,
}

var ingestFacilityCmd = &cobra.Command{
	Use:   "facility --file <file.shp> --srid <EPSG> --code <NN>",
	Short: "Replace a prefecture's point facilities",
	Long: `Replaces the facilities of one prefecture from a shapefile. The
--srid flag declares the coordinate system of the source.`,
	Args: cobra.NoArgs,
	RunE: runIngestFacility,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")

	// Server flags
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().Int("port", 8080, "server port")
	rootCmd.Flags().Bool("tls", false, "enable TLS")
	rootCmd.Flags().StringSlice("tls-domains", nil, "TLS domains")
	rootCmd.Flags().String("tls-email", "", "TLS email for Let's Encrypt")

	// Store and spool flags
	rootCmd.Flags().String("store", "./chizu.db", "SpatiaLite database path")
	rootCmd.Flags().String("spool", "./spool", "spool directory for source files")

	// Storage flags
	rootCmd.Flags().String("storage-type", "local", "storage type (local, s3, azure, http)")
	rootCmd.Flags().String("storage-path", "./data", "local storage path")

	// CORS flags
	rootCmd.Flags().StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("server.host", rootCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("tls.enabled", rootCmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("tls.domains", rootCmd.Flags().Lookup("tls-domains"))
	_ = viper.BindPFlag("tls.email", rootCmd.Flags().Lookup("tls-email"))
	_ = viper.BindPFlag("store.path", rootCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("spool.dir", rootCmd.Flags().Lookup("spool"))
	_ = viper.BindPFlag("storage.type", rootCmd.Flags().Lookup("storage-type"))
	_ = viper.BindPFlag("storage.local_path", rootCmd.Flags().Lookup("storage-path"))
	_ = viper.BindPFlag("server.cors.allowed_origins", rootCmd.Flags().Lookup("cors"))

	// Ingest flags
	ingestCmd.PersistentFlags().String("store-path", "", "SpatiaLite database path (overrides config)")
	ingestCmd.PersistentFlags().BoolP("yes", "y", false, "replace existing rows without asking")
	ingestCmd.PersistentFlags().String("file", "", "source file to ingest")
	ingestCmd.PersistentFlags().String("code", "", "two-digit prefecture code")
	ingestAdminCmd.Flags().Int("source-epsg", 0, "declared EPSG of the source (default: read from file)")
	ingestFacilityCmd.Flags().Int("srid", 4612, "declared SRID of the source")
	_ = ingestCmd.MarkPersistentFlagRequired("file")
	_ = ingestCmd.MarkPersistentFlagRequired("code")

	ingestCmd.AddCommand(ingestAdminCmd)
	ingestCmd.AddCommand(ingestFacilityCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting chizu",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"store", cfg.Store.Path,
		"spool", cfg.Spool.Dir,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize application
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address())
		if err := application.Start(ctx); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		cancel()
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down server")
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func runIngestAdmin(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	epsg, _ := cmd.Flags().GetInt("source-epsg")

	return runIngest(cmd, func(ctx context.Context, svc input.IngestRunner, key domain.DatasetKey) (input.IngestSummary, error) {
		return svc.IngestAdmin(ctx, input.AdminIngestRequest{
			Path:       file,
			Key:        key,
			SourceEPSG: epsg,
		})
	})
}

func runIngestFacility(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	srid, _ := cmd.Flags().GetInt("srid")

	return runIngest(cmd, func(ctx context.Context, svc input.IngestRunner, key domain.DatasetKey) (input.IngestSummary, error) {
		return svc.IngestFacilities(ctx, input.FacilityIngestRequest{
			Path:       file,
			Key:        key,
			SourceEPSG: srid,
		})
	})
}

// runIngest opens the store and runs a single dataset replacement against it.
func runIngest(cmd *cobra.Command, run func(context.Context, input.IngestRunner, domain.DatasetKey) (input.IngestSummary, error)) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if override, _ := cmd.Flags().GetString("store-path"); override != "" {
		cfg.Store.Path = override
	}
	assumeYes, _ := cmd.Flags().GetBool("yes")
	code, _ := cmd.Flags().GetString("code")

	key, err := domain.NewDatasetKey(code)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)
	ctx := context.Background()

	store, err := spatialite.Open(ctx, cfg.Store.Path, &output.NoOpMetrics{})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	confirm := promptConfirm
	if assumeYes {
		confirm = func(domain.DatasetKey, int64) bool { return true }
	}

	svc := application.NewIngestService(
		store,
		ingest.NewTransformer(projection.New()),
		confirm,
		&output.NoOpMetrics{},
		logger,
	)

	summary, err := run(ctx, svc, key)
	if errors.Is(err, domain.ErrReplaceDeclined) {
		fmt.Printf("Dataset %s left untouched: aborted by user\n", key)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Replaced dataset %s: deleted %d rows\n", summary.Key, summary.Deleted)
	for layer, n := range summary.Inserted {
		fmt.Printf("  %-16s %d inserted\n", layer, n)
	}
	return nil
}

// promptConfirm asks on the terminal before existing rows are replaced.
func promptConfirm(key domain.DatasetKey, existing int64) bool {
	fmt.Printf("Dataset %s already has %d rows. Replace them? [y/N]: ", key, existing)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(time.Now().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
