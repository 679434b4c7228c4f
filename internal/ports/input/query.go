// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/chizu-dev/chizu/internal/domain"
)

// TileService defines the primary port for tile-scoped feature queries.
type TileService interface {
	// QueryTile returns the FeatureCollection document for one tile of a layer.
	QueryTile(ctx context.Context, layer string, tile domain.Tile) ([]byte, error)

	// QueryLayer returns the FeatureCollection document of a whole layer.
	QueryLayer(ctx context.Context, layer string) ([]byte, error)
}

// IngestRunner defines the primary port for dataset replacement runs.
type IngestRunner interface {
	// IngestAdmin replaces one region's administrative boundaries from a
	// GeoJSON source file.
	IngestAdmin(ctx context.Context, req AdminIngestRequest) (IngestSummary, error)

	// IngestFacilities replaces one region's point facilities from a
	// shapefile source.
	IngestFacilities(ctx context.Context, req FacilityIngestRequest) (IngestSummary, error)
}

// AdminIngestRequest describes an administrative-boundary ingestion run.
type AdminIngestRequest struct {
	Path       string            // source GeoJSON file
	Key        domain.DatasetKey // region code being replaced
	SourceEPSG int               // 0 = use the EPSG declared by the file
}

// FacilityIngestRequest describes a point-facility ingestion run.
type FacilityIngestRequest struct {
	Path       string            // source shapefile (.shp)
	Key        domain.DatasetKey // region code being replaced
	SourceEPSG int               // declared SRID of the source
}

// IngestSummary reports what a completed run did.
type IngestSummary struct {
	Key      domain.DatasetKey
	Deleted  int64          // prior rows removed
	Inserted map[string]int // new rows per layer
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy    bool              // Overall health status
	Ready      bool              // Ready to accept requests
	LayerRows  map[string]int64  // Feature counts per layer
	Components map[string]string // Component statuses
}
