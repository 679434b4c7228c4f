// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	tileQueries         *prometheus.CounterVec
	tileQueryDuration   *prometheus.HistogramVec
	ingestRuns          *prometheus.CounterVec
	ingestedFeatures    *prometheus.CounterVec
	layerFeatures       *prometheus.GaugeVec
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "chizu"
	}

	return &Collector{
		tileQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tile_queries_total",
				Help:      "Total number of tile queries",
			},
			[]string{"layer", "status"},
		),

		tileQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tile_query_duration_seconds",
				Help:      "Tile query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"layer"},
		),

		ingestRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_runs_total",
				Help:      "Total number of dataset replacement runs",
			},
			[]string{"layer", "status"},
		),

		ingestedFeatures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingested_features_total",
				Help:      "Total number of features written by ingestion",
			},
			[]string{"layer"},
		),

		layerFeatures: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "layer_features",
				Help:      "Current number of features per layer",
			},
			[]string{"layer"},
		),

		storageOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncTileQuery increments the tile query counter for a layer.
func (c *Collector) IncTileQuery(layer string, success bool) {
	c.tileQueries.WithLabelValues(layer, statusLabel(success)).Inc()
}

// ObserveTileQueryDuration records tile query duration.
func (c *Collector) ObserveTileQueryDuration(layer string, duration time.Duration) {
	c.tileQueryDuration.WithLabelValues(layer).Observe(duration.Seconds())
}

// IncIngestRun increments the ingestion run counter for a layer.
func (c *Collector) IncIngestRun(layer string, success bool) {
	c.ingestRuns.WithLabelValues(layer, statusLabel(success)).Inc()
}

// AddIngestedFeatures counts features written during ingestion.
func (c *Collector) AddIngestedFeatures(layer string, count int) {
	c.ingestedFeatures.WithLabelValues(layer).Add(float64(count))
}

// SetLayerFeatures sets the current feature count of a layer.
func (c *Collector) SetLayerFeatures(layer string, count int64) {
	c.layerFeatures.WithLabelValues(layer).Set(float64(count))
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := normalizePath(r.URL.Path)
		status := statusToString(wrapped.statusCode)

		c.httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration.Seconds())
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses dynamic URL segments so metrics stay low-cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/tiles/"):
		return "/api/v1/tiles/{layer}/{zoom}/{x}/{y}"
	case strings.HasPrefix(path, "/api/v1/layers/"):
		return "/api/v1/layers/{layer}"
	default:
		return path
	}
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
