package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ingest"
	"github.com/chizu-dev/chizu/internal/ports/input"
	"github.com/chizu-dev/chizu/internal/ports/output"
	"github.com/chizu-dev/chizu/internal/projection"
)

func newTestIngestService(store *mockStore, confirm output.ConfirmReplace) *IngestService {
	if confirm == nil {
		confirm = func(domain.DatasetKey, int64) bool { return true }
	}
	return NewIngestService(
		store,
		ingest.NewTransformer(projection.New()),
		confirm,
		&output.NoOpMetrics{},
		testLogger(),
	)
}

func testFeatures(layer domain.LayerName, n int) []domain.Feature {
	features := make([]domain.Feature, n)
	for i := range features {
		features[i] = domain.Feature{
			LayerName:  string(layer),
			Properties: map[string]interface{}{"code": "21"},
		}
	}
	return features
}

func TestReplaceCommit(t *testing.T) {
	store := newMockStore()
	store.counts[domain.LayerFacilities] = 3
	store.tx.deletePerLayer = map[domain.LayerName]int64{domain.LayerFacilities: 3}
	confirm := &confirmRecorder{answer: true}
	svc := newTestIngestService(store, confirm.fn())

	summary, err := svc.replace(context.Background(), "21",
		[]domain.LayerName{domain.LayerFacilities}, testFeatures(domain.LayerFacilities, 2))
	if err != nil {
		t.Fatalf("replace() error = %v", err)
	}

	if !confirm.called {
		t.Error("confirmation should run when prior rows exist")
	}
	if confirm.key != "21" || confirm.existing != 3 {
		t.Errorf("confirm called with key=%s existing=%d", confirm.key, confirm.existing)
	}
	if summary.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3", summary.Deleted)
	}
	if summary.Inserted["facilities"] != 2 {
		t.Errorf("Inserted = %v", summary.Inserted)
	}
	if !store.tx.committed {
		t.Error("transaction should be committed")
	}
	if store.tx.rolledBack {
		t.Error("transaction should not be rolled back")
	}
}

func TestReplaceDeclinedIsNoOp(t *testing.T) {
	store := newMockStore()
	store.counts[domain.LayerFacilities] = 5
	confirm := &confirmRecorder{answer: false}
	svc := newTestIngestService(store, confirm.fn())

	_, err := svc.replace(context.Background(), "21",
		[]domain.LayerName{domain.LayerFacilities}, testFeatures(domain.LayerFacilities, 2))
	if !errors.Is(err, domain.ErrReplaceDeclined) {
		t.Fatalf("error = %v, want ErrReplaceDeclined", err)
	}

	if len(store.tx.deleted) != 0 || len(store.tx.inserted) != 0 {
		t.Error("declined replace must not touch the store")
	}
	if store.tx.committed || store.tx.rolledBack {
		t.Error("declined replace must not open a transaction")
	}
}

func TestReplaceSkipsConfirmationWhenNoPriorRows(t *testing.T) {
	store := newMockStore()
	confirm := &confirmRecorder{answer: false} // would decline if asked
	svc := newTestIngestService(store, confirm.fn())

	_, err := svc.replace(context.Background(), "21",
		[]domain.LayerName{domain.LayerFacilities}, testFeatures(domain.LayerFacilities, 1))
	if err != nil {
		t.Fatalf("replace() error = %v", err)
	}

	if confirm.called {
		t.Error("confirmation must be skipped when no prior rows exist")
	}
	if !store.tx.committed {
		t.Error("transaction should be committed")
	}
}

func TestReplaceInsertFailureRollsBack(t *testing.T) {
	store := newMockStore()
	store.tx.insertErr = errors.New("UNIQUE constraint failed")
	store.tx.insertFailAfter = 2
	svc := newTestIngestService(store, nil)

	_, err := svc.replace(context.Background(), "21",
		[]domain.LayerName{domain.LayerFacilities}, testFeatures(domain.LayerFacilities, 3))
	if err == nil {
		t.Fatal("replace() must surface insert failures")
	}

	if store.tx.committed {
		t.Error("failed replace must not commit")
	}
	if !store.tx.rolledBack {
		t.Error("failed replace must roll back")
	}
}

func TestReplaceDeleteFailureRollsBack(t *testing.T) {
	store := newMockStore()
	store.tx.deleteErr = errors.New("database is locked")
	svc := newTestIngestService(store, nil)

	_, err := svc.replace(context.Background(), "21",
		[]domain.LayerName{domain.LayerFacilities}, testFeatures(domain.LayerFacilities, 1))
	if err == nil {
		t.Fatal("replace() must surface delete failures")
	}
	if store.tx.committed {
		t.Error("failed replace must not commit")
	}
	if !store.tx.rolledBack {
		t.Error("failed replace must roll back")
	}
}

func TestReplaceCommitFailure(t *testing.T) {
	store := newMockStore()
	store.tx.commitErr = errors.New("disk full")
	svc := newTestIngestService(store, nil)

	_, err := svc.replace(context.Background(), "21",
		[]domain.LayerName{domain.LayerFacilities}, testFeatures(domain.LayerFacilities, 1))
	if err == nil {
		t.Fatal("replace() must surface commit failures")
	}
}

func TestReplaceCountFailure(t *testing.T) {
	store := newMockStore()
	store.countErr = errors.New("no such table")
	confirm := &confirmRecorder{answer: true}
	svc := newTestIngestService(store, confirm.fn())

	_, err := svc.replace(context.Background(), "21",
		[]domain.LayerName{domain.LayerFacilities}, nil)
	if err == nil {
		t.Fatal("replace() must surface count failures")
	}
	if confirm.called {
		t.Error("confirmation must not run after a count failure")
	}
}

const adminIngestSample = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::6668"}},
  "features": [
    {
      "type": "Feature",
      "properties": {"N03_001": "岐阜県", "N03_002": null, "N03_003": null, "N03_004": null, "N03_007": null},
      "geometry": {"type": "Polygon", "coordinates": [[[136.0,35.0],[137.0,35.0],[137.0,36.0],[136.0,35.0]]]}
    },
    {
      "type": "Feature",
      "properties": {"N03_001": "岐阜県", "N03_002": null, "N03_003": null, "N03_004": "岐阜市", "N03_007": "21201"},
      "geometry": {"type": "Polygon", "coordinates": [[[136.7,35.4],[136.8,35.4],[136.8,35.5],[136.7,35.4]]]}
    }
  ]
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestAdmin(t *testing.T) {
	store := newMockStore()
	svc := newTestIngestService(store, nil)
	path := writeTempFile(t, "admin_21.geojson", adminIngestSample)

	summary, err := svc.IngestAdmin(context.Background(), input.AdminIngestRequest{
		Path: path,
		Key:  "21",
	})
	if err != nil {
		t.Fatalf("IngestAdmin() error = %v", err)
	}

	if summary.Inserted["regions"] != 1 {
		t.Errorf("regions inserted = %d, want 1", summary.Inserted["regions"])
	}
	if summary.Inserted["municipalities"] != 1 {
		t.Errorf("municipalities inserted = %d, want 1", summary.Inserted["municipalities"])
	}
	if !store.tx.committed {
		t.Error("transaction should be committed")
	}

	// Both admin layers are replaced in the same run.
	if len(store.tx.deleted) != 2 {
		t.Errorf("deleted layers = %v, want both admin layers", store.tx.deleted)
	}

	// Inserted geometries must be in the store CRS.
	for _, f := range store.tx.inserted {
		if f.Geometry.SRID != domain.SRIDStore {
			t.Errorf("inserted geometry SRID = %d, want %d", f.Geometry.SRID, domain.SRIDStore)
		}
	}
}

func TestIngestAdminInvalidKey(t *testing.T) {
	svc := newTestIngestService(newMockStore(), nil)

	_, err := svc.IngestAdmin(context.Background(), input.AdminIngestRequest{
		Path: "irrelevant.geojson",
		Key:  "99",
	})
	if !errors.Is(err, domain.ErrInvalidRegionCode) {
		t.Errorf("error = %v, want ErrInvalidRegionCode", err)
	}
}

func TestIngestAdminMissingFile(t *testing.T) {
	svc := newTestIngestService(newMockStore(), nil)

	_, err := svc.IngestAdmin(context.Background(), input.AdminIngestRequest{
		Path: filepath.Join(t.TempDir(), "nope.geojson"),
		Key:  "21",
	})
	if err == nil {
		t.Error("IngestAdmin() should fail for a missing file")
	}
}

func TestIngestAdminSchemaMismatchHasNoSideEffects(t *testing.T) {
	sample := `{
	  "type": "FeatureCollection",
	  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::6668"}},
	  "features": [
	    {
	      "type": "Feature",
	      "properties": {"N03_001": "岐阜県", "N99_999": "bogus"},
	      "geometry": {"type": "Polygon", "coordinates": [[[136.0,35.0],[137.0,35.0],[137.0,36.0],[136.0,35.0]]]}
	    }
	  ]
	}`
	store := newMockStore()
	svc := newTestIngestService(store, nil)
	path := writeTempFile(t, "admin_21.geojson", sample)

	_, err := svc.IngestAdmin(context.Background(), input.AdminIngestRequest{Path: path, Key: "21"})
	var serr *domain.SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
	if len(store.tx.deleted) != 0 || len(store.tx.inserted) != 0 || store.tx.committed {
		t.Error("schema failure must abort with zero side effects")
	}
}

func TestIngestAdminNoCRSAndNoOverride(t *testing.T) {
	sample := `{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "type": "Feature",
	      "properties": {"N03_001": "岐阜県"},
	      "geometry": {"type": "Polygon", "coordinates": [[[136.0,35.0],[137.0,35.0],[137.0,36.0],[136.0,35.0]]]}
	    }
	  ]
	}`
	svc := newTestIngestService(newMockStore(), nil)
	path := writeTempFile(t, "admin_21.geojson", sample)

	_, err := svc.IngestAdmin(context.Background(), input.AdminIngestRequest{Path: path, Key: "21"})
	if err == nil {
		t.Error("IngestAdmin() should fail when the CRS is unknown")
	}
}

func TestIngestFacilitiesInvalidSRID(t *testing.T) {
	svc := newTestIngestService(newMockStore(), nil)

	_, err := svc.IngestFacilities(context.Background(), input.FacilityIngestRequest{
		Path:       "irrelevant.shp",
		Key:        "21",
		SourceEPSG: 12345,
	})
	if !errors.Is(err, domain.ErrInvalidSRID) {
		t.Errorf("error = %v, want ErrInvalidSRID", err)
	}
}
