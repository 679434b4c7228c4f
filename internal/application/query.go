package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/chizu-dev/chizu/internal/assemble"
	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ports/output"
	"github.com/chizu-dev/chizu/internal/tilequery"
)

// TileQueryService serves FeatureCollection documents for tile-scoped and
// whole-layer queries.
type TileQueryService struct {
	store   output.SpatialStore
	builder *tilequery.Builder
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// NewTileQueryService creates a new tile query service.
func NewTileQueryService(
	store output.SpatialStore,
	builder *tilequery.Builder,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *TileQueryService {
	return &TileQueryService{
		store:   store,
		builder: builder,
		metrics: metrics,
		logger:  logger,
	}
}

// QueryTile returns the FeatureCollection for one tile of a layer.
// Polygon layers pass the store's pre-rendered feature fragments through;
// the facility layer is rebuilt from typed rows with its public property
// set.
func (s *TileQueryService) QueryTile(ctx context.Context, layer string, tile domain.Tile) ([]byte, error) {
	start := time.Now()

	l, ok := domain.KnownLayer(layer)
	if !ok {
		return nil, domain.ErrLayerNotFound
	}

	polygon, err := s.builder.QueryPolygon(tile)
	if err != nil {
		s.metrics.IncTileQuery(layer, false)
		return nil, err
	}

	var doc []byte
	if l.Name == domain.LayerFacilities {
		doc, err = s.queryFacilityTile(ctx, polygon)
	} else {
		doc, err = s.queryFragmentTile(ctx, l.Name, polygon)
	}
	if err != nil {
		s.metrics.IncTileQuery(layer, false)
		s.logger.Warn("tile query failed", "layer", layer, "tile", tile.String(), "error", err)
		return nil, &domain.QueryError{Layer: layer, Tile: tile.String(), Err: err}
	}

	s.metrics.IncTileQuery(layer, true)
	s.metrics.ObserveTileQueryDuration(layer, time.Since(start))
	return doc, nil
}

// QueryLayer returns the FeatureCollection of a whole layer.
func (s *TileQueryService) QueryLayer(ctx context.Context, layer string) ([]byte, error) {
	start := time.Now()

	l, ok := domain.KnownLayer(layer)
	if !ok {
		return nil, domain.ErrLayerNotFound
	}

	var (
		doc []byte
		err error
	)
	if l.Name == domain.LayerFacilities {
		var rows []domain.Facility
		rows, err = s.store.QueryAllFacilities(ctx)
		if err == nil {
			doc, err = assemble.BuildFacilityCollection(rows)
		}
	} else {
		var fragments []json.RawMessage
		fragments, err = s.store.QueryAllFragments(ctx, l.Name)
		if err == nil {
			doc = assemble.SpliceFragments(fragments)
		}
	}
	if err != nil {
		s.metrics.IncTileQuery(layer, false)
		s.logger.Warn("layer query failed", "layer", layer, "error", err)
		return nil, &domain.QueryError{Layer: layer, Err: err}
	}

	s.metrics.IncTileQuery(layer, true)
	s.metrics.ObserveTileQueryDuration(layer, time.Since(start))
	return doc, nil
}

func (s *TileQueryService) queryFragmentTile(ctx context.Context, layer domain.LayerName, polygon string) ([]byte, error) {
	fragments, err := s.store.QueryFragments(ctx, layer, polygon, domain.SRIDStore)
	if err != nil {
		return nil, err
	}
	return assemble.SpliceFragments(fragments), nil
}

func (s *TileQueryService) queryFacilityTile(ctx context.Context, polygon string) ([]byte, error) {
	rows, err := s.store.QueryFacilities(ctx, polygon, domain.SRIDStore)
	if err != nil {
		return nil, err
	}
	return assemble.BuildFacilityCollection(rows)
}
