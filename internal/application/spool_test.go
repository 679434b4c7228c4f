package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ports/input"
)

// mockRunner implements input.IngestRunner, recording requests.
type mockRunner struct {
	adminReqs    []input.AdminIngestRequest
	facilityReqs []input.FacilityIngestRequest
	err          error
}

func (m *mockRunner) IngestAdmin(_ context.Context, req input.AdminIngestRequest) (input.IngestSummary, error) {
	m.adminReqs = append(m.adminReqs, req)
	return input.IngestSummary{Key: req.Key}, m.err
}

func (m *mockRunner) IngestFacilities(_ context.Context, req input.FacilityIngestRequest) (input.IngestSummary, error) {
	m.facilityReqs = append(m.facilityReqs, req)
	return input.IngestSummary{Key: req.Key}, m.err
}

func spoolFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSpoolScan(t *testing.T) {
	dir := t.TempDir()
	spoolFile(t, dir, "admin_21.geojson")
	spoolFile(t, dir, "facility_21_6668.shp")
	spoolFile(t, dir, "facility_21_6668.dbf") // sidecar, skipped
	spoolFile(t, dir, "readme.txt")

	runner := &mockRunner{}
	service := NewSpoolService(runner, dir, time.Hour, testLogger())

	result, err := service.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if result.Processed != 2 {
		t.Errorf("Processed = %d, want 2", result.Processed)
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}

	if len(runner.adminReqs) != 1 || runner.adminReqs[0].Key != domain.DatasetKey("21") {
		t.Errorf("admin requests = %+v", runner.adminReqs)
	}
	if len(runner.facilityReqs) != 1 {
		t.Fatalf("facility requests = %+v", runner.facilityReqs)
	}
	if runner.facilityReqs[0].SourceEPSG != 6668 {
		t.Errorf("SourceEPSG = %d, want 6668", runner.facilityReqs[0].SourceEPSG)
	}

	// Processed files are renamed aside so the next scan ignores them.
	if _, err := os.Stat(filepath.Join(dir, "admin_21.geojson.done")); err != nil {
		t.Error("processed admin file should be renamed to .done")
	}

	second, err := service.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan() error = %v", err)
	}
	if second.Processed != 0 {
		t.Errorf("second scan Processed = %d, want 0", second.Processed)
	}
}

func TestSpoolScanIngestFailure(t *testing.T) {
	dir := t.TempDir()
	spoolFile(t, dir, "admin_21.geojson")

	runner := &mockRunner{err: errors.New("bad source")}
	service := NewSpoolService(runner, dir, time.Hour, testLogger())

	result, err := service.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if _, err := os.Stat(filepath.Join(dir, "admin_21.geojson.failed")); err != nil {
		t.Error("failed file should be renamed to .failed")
	}
}

func TestSpoolScanMissingDir(t *testing.T) {
	service := NewSpoolService(&mockRunner{}, filepath.Join(t.TempDir(), "nope"), time.Hour, testLogger())

	_, err := service.Scan(context.Background())
	var serr *domain.StorageError
	if !errors.As(err, &serr) {
		t.Errorf("error = %v, want StorageError", err)
	}
}

func TestSpoolProcessUnrecognized(t *testing.T) {
	dir := t.TempDir()
	path := spoolFile(t, dir, "notes.md")

	service := NewSpoolService(&mockRunner{}, dir, time.Hour, testLogger())

	processed, err := service.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if processed {
		t.Error("unrecognized file must not be processed")
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("unrecognized file must be left in place")
	}
}

func TestSpoolTriggerScanRateLimiting(t *testing.T) {
	dir := t.TempDir()
	service := NewSpoolService(&mockRunner{}, dir, time.Hour, testLogger())

	ctx := context.Background()

	if _, err := service.TriggerScan(ctx); err != nil {
		t.Errorf("first trigger should succeed, got %v", err)
	}

	// Immediate second call should be rate limited.
	if _, err := service.TriggerScan(ctx); err != ErrRateLimited {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestSpoolStartStop(t *testing.T) {
	service := NewSpoolService(&mockRunner{}, t.TempDir(), 100*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	service.Stop()

	// Should complete without hanging.
}

func TestSpoolInterval(t *testing.T) {
	interval := 2 * time.Hour
	service := NewSpoolService(&mockRunner{}, t.TempDir(), interval, testLogger())

	if service.Interval() != interval {
		t.Errorf("expected interval %v, got %v", interval, service.Interval())
	}
}
