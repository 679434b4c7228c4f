package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chizu-dev/chizu/internal/config"
	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ports/input"
)

// stubTiles implements input.TileService with canned responses.
type stubTiles struct {
	doc   []byte
	err   error
	tile  domain.Tile
	layer string
}

func (s *stubTiles) QueryTile(_ context.Context, layer string, tile domain.Tile) ([]byte, error) {
	s.layer = layer
	s.tile = tile
	return s.doc, s.err
}

func (s *stubTiles) QueryLayer(_ context.Context, layer string) ([]byte, error) {
	s.layer = layer
	return s.doc, s.err
}

// stubHealth implements input.HealthChecker.
type stubHealth struct {
	healthy bool
	ready   bool
}

func (s *stubHealth) IsHealthy(context.Context) bool { return s.healthy }
func (s *stubHealth) IsReady(context.Context) bool   { return s.ready }
func (s *stubHealth) GetHealthDetails(context.Context) input.HealthDetails {
	return input.HealthDetails{
		Healthy:    s.healthy,
		Ready:      s.ready,
		LayerRows:  map[string]int64{"regions": 1},
		Components: map[string]string{"store": "ok"},
	}
}

func newTestServer(tiles input.TileService, health input.HealthChecker) *Server {
	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewServer(cfg, tiles, health, nil, nil, logger)
}

const sampleDoc = `{"type":"FeatureCollection","features":[]}`

func TestHandleTile(t *testing.T) {
	tiles := &stubTiles{doc: []byte(sampleDoc)}
	server := newTestServer(tiles, &stubHealth{healthy: true, ready: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiles/municipalities/14/14552/6451", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != sampleDoc {
		t.Errorf("body = %s, want the document verbatim", rec.Body.String())
	}

	want := domain.Tile{Zoom: 14, X: 14552, Y: 6451}
	if tiles.tile != want {
		t.Errorf("tile = %+v, want %+v", tiles.tile, want)
	}
}

func TestHandleTileOutOfRange(t *testing.T) {
	// x = 4 does not exist at zoom 1 (valid range 0..1)
	server := newTestServer(&stubTiles{doc: []byte(sampleDoc)}, &stubHealth{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiles/regions/1/4/0", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleTileNegativeCoordinateIsNotRouted(t *testing.T) {
	server := newTestServer(&stubTiles{doc: []byte(sampleDoc)}, &stubHealth{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiles/regions/14/-1/0", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleTileUnknownLayer(t *testing.T) {
	server := newTestServer(&stubTiles{err: domain.ErrLayerNotFound}, &stubHealth{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiles/rivers/14/14552/6451", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body["message"] != "Layer not found" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestHandleTileStoreFailure(t *testing.T) {
	server := newTestServer(&stubTiles{
		err: &domain.QueryError{Layer: "regions", Tile: "14/14552/6451", Err: errors.New("database is locked")},
	}, &stubHealth{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiles/regions/14/14552/6451", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	// The response body carries the store's failure message.
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "database is locked") {
		t.Errorf("message = %q, want the underlying store error surfaced", msg)
	}
}

func TestHandleLayer(t *testing.T) {
	server := newTestServer(&stubTiles{doc: []byte(sampleDoc)}, &stubHealth{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/layers/facilities", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != sampleDoc {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestWholeLayerAliases(t *testing.T) {
	for _, layer := range []string{"regions", "municipalities", "facilities"} {
		t.Run(layer, func(t *testing.T) {
			tiles := &stubTiles{doc: []byte(sampleDoc)}
			server := newTestServer(tiles, &stubHealth{})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/"+layer, nil)
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if tiles.layer != layer {
				t.Errorf("queried layer = %q, want %q", tiles.layer, layer)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(&stubTiles{}, &stubHealth{healthy: true, ready: true})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
	if body["ready"] != true {
		t.Errorf("ready = %v", body["ready"])
	}
}

func TestHandleLivenessAndReadiness(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		health *stubHealth
		want   int
	}{
		{"live ok", "/health/live", &stubHealth{healthy: true}, http.StatusOK},
		{"live unhealthy", "/health/live", &stubHealth{healthy: false}, http.StatusServiceUnavailable},
		{"ready ok", "/health/ready", &stubHealth{ready: true}, http.StatusOK},
		{"ready not ready", "/health/ready", &stubHealth{ready: false}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&stubTiles{}, tt.health)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMetricsMiddlewareObservesRequests(t *testing.T) {
	var observed []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			observed = append(observed, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	server := NewServer(cfg, &stubTiles{doc: []byte(sampleDoc)}, &stubHealth{healthy: true}, nil, mw, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiles/regions/14/14552/6451", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if len(observed) != 1 || observed[0] != "/api/v1/tiles/regions/14/14552/6451" {
		t.Errorf("middleware observed %v, want the tile request", observed)
	}
}

func TestHandleSpoolScanUnavailable(t *testing.T) {
	// No spool service configured: the route is not registered.
	server := newTestServer(&stubTiles{}, &stubHealth{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/spool/scan", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleOpenAPI(t *testing.T) {
	server := newTestServer(&stubTiles{}, &stubHealth{})

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var spec map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("spec is not JSON: %v", err)
	}
	if spec["openapi"] == nil {
		t.Error("spec has no openapi version field")
	}
}
