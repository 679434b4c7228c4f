package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ingest"
	"github.com/chizu-dev/chizu/internal/ports/input"
	"github.com/chizu-dev/chizu/internal/ports/output"
)

// IngestService replaces dataset partitions from MLIT source files. A run
// is all-or-nothing per dataset key: prior rows are counted, replacement is
// confirmed through the injected ConfirmReplace, and delete plus insert
// happen inside one store transaction that any failure rolls back.
type IngestService struct {
	store       output.SpatialStore
	transformer *ingest.Transformer
	confirm     output.ConfirmReplace
	metrics     output.MetricsCollector
	logger      *slog.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	store output.SpatialStore,
	transformer *ingest.Transformer,
	confirm output.ConfirmReplace,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		store:       store,
		transformer: transformer,
		confirm:     confirm,
		metrics:     metrics,
		logger:      logger,
	}
}

// IngestAdmin replaces one region's administrative boundaries. The source
// file's features are split into region-outline and municipality rows and
// both layers are replaced together.
func (s *IngestService) IngestAdmin(ctx context.Context, req input.AdminIngestRequest) (input.IngestSummary, error) {
	if !req.Key.Valid() {
		return input.IngestSummary{}, domain.ErrInvalidRegionCode
	}

	f, err := os.Open(req.Path)
	if err != nil {
		return input.IngestSummary{}, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	src, err := ingest.ReadAdminSource(f)
	if err != nil {
		return input.IngestSummary{}, err
	}

	epsg := req.SourceEPSG
	if epsg == 0 {
		epsg = src.EPSG
	}
	if epsg == 0 {
		return input.IngestSummary{}, &domain.ValidationError{
			Field:      "source_epsg",
			Value:      req.Path,
			Constraint: "declared crs member or explicit EPSG",
			Message:    "source file declares no CRS and no EPSG was given",
		}
	}

	if err := ingest.ValidateSchema(src.Fields, domain.AdminSchema); err != nil {
		return input.IngestSummary{}, err
	}

	features := make([]domain.Feature, 0, len(src.Regions)+len(src.Municipalities))
	for _, rec := range src.Regions {
		feat, err := s.transformer.Region(rec, req.Key, epsg)
		if err != nil {
			return input.IngestSummary{}, err
		}
		features = append(features, feat)
	}
	for _, rec := range src.Municipalities {
		feat, err := s.transformer.Municipality(rec, epsg)
		if err != nil {
			return input.IngestSummary{}, err
		}
		features = append(features, feat)
	}

	layers := []domain.LayerName{domain.LayerRegions, domain.LayerMunicipalities}
	summary, err := s.replace(ctx, req.Key, layers, features)
	s.recordRun(layers, summary, err)
	return summary, err
}

// IngestFacilities replaces one region's point facilities from a
// shapefile source.
func (s *IngestService) IngestFacilities(ctx context.Context, req input.FacilityIngestRequest) (input.IngestSummary, error) {
	if !req.Key.Valid() {
		return input.IngestSummary{}, domain.ErrInvalidRegionCode
	}
	if !domain.IsKnownSRID(req.SourceEPSG) {
		return input.IngestSummary{}, domain.ErrInvalidSRID
	}

	src, err := ingest.ReadFacilitySource(req.Path)
	if err != nil {
		return input.IngestSummary{}, err
	}

	if err := ingest.ValidateSchema(src.Fields, domain.FacilitySchema); err != nil {
		return input.IngestSummary{}, err
	}

	features := make([]domain.Feature, 0, len(src.Records))
	for _, rec := range src.Records {
		feat, err := s.transformer.Facility(rec, req.SourceEPSG)
		if err != nil {
			return input.IngestSummary{}, err
		}
		features = append(features, feat)
	}

	layers := []domain.LayerName{domain.LayerFacilities}
	summary, err := s.replace(ctx, req.Key, layers, features)
	s.recordRun(layers, summary, err)
	return summary, err
}

// replace is the transactional core of a run: count prior rows, confirm
// when any exist, then delete and insert inside one transaction. Declining
// the confirmation is a deliberate no-op, not a failure.
func (s *IngestService) replace(
	ctx context.Context,
	key domain.DatasetKey,
	layers []domain.LayerName,
	features []domain.Feature,
) (input.IngestSummary, error) {
	summary := input.IngestSummary{Key: key, Inserted: map[string]int{}}

	var existing int64
	for _, layer := range layers {
		n, err := s.store.CountMatching(ctx, layer, key)
		if err != nil {
			return summary, &domain.QueryError{Layer: string(layer), Err: err}
		}
		existing += n
	}

	if existing > 0 && !s.confirm(key, existing) {
		s.logger.Info("replace declined", "key", key, "existing", existing)
		return summary, domain.ErrReplaceDeclined
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return summary, err
	}
	defer tx.Rollback()

	for _, layer := range layers {
		n, err := tx.DeleteMatching(ctx, layer, key)
		if err != nil {
			return summary, fmt.Errorf("delete %s rows for %s: %w", layer, key, err)
		}
		summary.Deleted += n
	}

	for _, feat := range features {
		if err := tx.InsertFeature(ctx, feat); err != nil {
			return summary, fmt.Errorf("insert into %s: %w", feat.LayerName, err)
		}
		summary.Inserted[feat.LayerName]++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("commit replace of %s: %w", key, err)
	}

	s.logger.Info("replace committed",
		"key", key, "deleted", summary.Deleted, "inserted", summary.Inserted)
	return summary, nil
}

func (s *IngestService) recordRun(layers []domain.LayerName, summary input.IngestSummary, err error) {
	for _, layer := range layers {
		s.metrics.IncIngestRun(string(layer), err == nil)
		if err == nil {
			s.metrics.AddIngestedFeatures(string(layer), summary.Inserted[string(layer)])
		}
	}
}
