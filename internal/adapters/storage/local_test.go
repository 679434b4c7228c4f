package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"admin_21.geojson", true},
		{"facility_21_6668.shp", true},
		{"facility_21_6668.dbf", true},
		{"facility_21_6668.shx", true},
		{"facility_21_6668.prj", true},
		{"FACILITY_21_6668.SHP", true},
		{"nested/admin_01.geojson", true},
		{"readme.txt", false},
		{"data.gpkg", false},
		{"admin_21.geojson.done", false},
	}

	for _, tt := range tests {
		if got := isSourceFile(tt.key); got != tt.want {
			t.Errorf("isSourceFile(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestLocalStorageList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "admin_21.geojson", "{}")
	writeFile(t, dir, "facility_21_6668.shp", "shp")
	writeFile(t, dir, "notes.txt", "skip me")

	storage := NewLocalStorage(dir)
	objects, err := storage.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2: %+v", len(objects), objects)
	}
	for _, obj := range objects {
		if obj.Size == 0 {
			t.Errorf("object %s has zero size", obj.Key)
		}
	}
}

func TestLocalStorageDownload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "admin_21.geojson", `{"type":"FeatureCollection"}`)

	storage := NewLocalStorage(dir)
	dest := filepath.Join(t.TempDir(), "spool", "admin_21.geojson")

	if err := storage.Download(context.Background(), "admin_21.geojson", dest); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"FeatureCollection"}` {
		t.Errorf("downloaded content = %s", data)
	}
}

func TestLocalStorageGetReader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "admin_21.geojson", "content")

	storage := NewLocalStorage(dir)
	r, err := storage.GetReader(context.Background(), "admin_21.geojson")
	if err != nil {
		t.Fatalf("GetReader() error = %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("content = %s", data)
	}
}

func TestLocalStorageExists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "admin_21.geojson", "{}")

	storage := NewLocalStorage(dir)

	exists, err := storage.Exists(context.Background(), "admin_21.geojson")
	if err != nil || !exists {
		t.Errorf("Exists(present) = %v, %v", exists, err)
	}

	exists, err = storage.Exists(context.Background(), "admin_13.geojson")
	if err != nil || exists {
		t.Errorf("Exists(absent) = %v, %v", exists, err)
	}
}

func TestMirrorSync(t *testing.T) {
	remote := t.TempDir()
	writeFile(t, remote, "admin_21.geojson", "{}")
	writeFile(t, remote, "facility_21_6668.shp", "shp")
	writeFile(t, remote, "skip.txt", "x")

	spool := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	mirror := NewMirror(NewLocalStorage(remote), spool, logger)

	n, err := mirror.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if n != 2 {
		t.Errorf("downloaded = %d, want 2", n)
	}

	if _, err := os.Stat(filepath.Join(spool, "admin_21.geojson")); err != nil {
		t.Error("admin file should be mirrored into the spool")
	}

	// A second sync fetches nothing new.
	n, err = mirror.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second sync downloaded = %d, want 0", n)
	}

	// Files moved aside after ingestion are not re-fetched either.
	if err := os.Rename(filepath.Join(spool, "admin_21.geojson"), filepath.Join(spool, "admin_21.geojson.done")); err != nil {
		t.Fatal(err)
	}
	n, err = mirror.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("sync after rename downloaded = %d, want 0", n)
	}
}
