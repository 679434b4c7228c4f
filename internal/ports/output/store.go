package output

import (
	"context"
	"encoding/json"

	"github.com/chizu-dev/chizu/internal/domain"
)

// SpatialStore defines the secondary port for spatial data access.
type SpatialStore interface {
	// QueryFragments returns pre-rendered GeoJSON Feature fragments for
	// every row of the layer intersecting the polygon.
	QueryFragments(ctx context.Context, layer domain.LayerName, polygonWKT string, srid int) ([]json.RawMessage, error)

	// QueryAllFragments returns fragments for every row of the layer.
	QueryAllFragments(ctx context.Context, layer domain.LayerName) ([]json.RawMessage, error)

	// QueryFacilities returns typed facility rows intersecting the polygon.
	QueryFacilities(ctx context.Context, polygonWKT string, srid int) ([]domain.Facility, error)

	// QueryAllFacilities returns every facility row.
	QueryAllFacilities(ctx context.Context) ([]domain.Facility, error)

	// CountMatching counts rows of a layer whose key column prefix-matches
	// the dataset key.
	CountMatching(ctx context.Context, layer domain.LayerName, key domain.DatasetKey) (int64, error)

	// CountLayer counts all rows of a layer.
	CountLayer(ctx context.Context, layer domain.LayerName) (int64, error)

	// Begin opens a write transaction.
	Begin(ctx context.Context) (StoreTx, error)

	// Ping verifies the store connection.
	Ping(ctx context.Context) error
}

// StoreTx is one write transaction. Mutations are invisible to readers
// until Commit; Rollback discards everything.
type StoreTx interface {
	// DeleteMatching removes rows of a layer whose key column
	// prefix-matches the dataset key and reports how many went away.
	DeleteMatching(ctx context.Context, layer domain.LayerName, key domain.DatasetKey) (int64, error)

	// InsertFeature inserts one feature into its layer.
	InsertFeature(ctx context.Context, feature domain.Feature) error

	// Commit makes the transaction's changes durable.
	Commit() error

	// Rollback discards the transaction's changes. Safe after Commit.
	Rollback() error
}

// ConfirmReplace decides whether existing rows of a dataset key may be
// replaced. Implementations range from interactive terminal prompts to
// fixed policies; a false return must leave the store untouched.
type ConfirmReplace func(key domain.DatasetKey, existing int64) bool
