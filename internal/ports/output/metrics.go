package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncTileQuery increments the tile query counter for a layer.
	IncTileQuery(layer string, success bool)

	// ObserveTileQueryDuration records tile query duration.
	ObserveTileQueryDuration(layer string, duration time.Duration)

	// IncIngestRun increments the ingestion run counter for a layer.
	IncIngestRun(layer string, success bool)

	// AddIngestedFeatures counts features written during ingestion.
	AddIngestedFeatures(layer string, count int)

	// SetLayerFeatures sets the current feature count of a layer.
	SetLayerFeatures(layer string, count int64)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncTileQuery implements MetricsCollector.
func (n *NoOpMetrics) IncTileQuery(_ string, _ bool) {}

// ObserveTileQueryDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveTileQueryDuration(_ string, _ time.Duration) {}

// IncIngestRun implements MetricsCollector.
func (n *NoOpMetrics) IncIngestRun(_ string, _ bool) {}

// AddIngestedFeatures implements MetricsCollector.
func (n *NoOpMetrics) AddIngestedFeatures(_ string, _ int) {}

// SetLayerFeatures implements MetricsCollector.
func (n *NoOpMetrics) SetLayerFeatures(_ string, _ int64) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
