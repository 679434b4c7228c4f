package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/chizu-dev/chizu/internal/application"
	"github.com/chizu-dev/chizu/internal/domain"
)

// handleTile serves the FeatureCollection for one tile of a layer.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	tile, err := parseTile(vars)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.tiles.QueryTile(r.Context(), vars["layer"], tile)
	if err != nil {
		s.handleQueryError(w, err)
		return
	}

	s.writeGeoJSON(w, doc)
}

// handleLayer serves the FeatureCollection of a whole layer.
func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	doc, err := s.tiles.QueryLayer(r.Context(), mux.Vars(r)["layer"])
	if err != nil {
		s.handleQueryError(w, err)
		return
	}

	s.writeGeoJSON(w, doc)
}

// wholeLayerHandler returns a handler serving one fixed layer in full.
func (s *Server) wholeLayerHandler(layer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.tiles.QueryLayer(r.Context(), layer)
		if err != nil {
			s.handleQueryError(w, err)
			return
		}
		s.writeGeoJSON(w, doc)
	}
}

// parseTile parses zoom/x/y path variables into a validated tile.
func parseTile(vars map[string]string) (domain.Tile, error) {
	zoom, err := strconv.Atoi(vars["zoom"])
	if err != nil {
		return domain.Tile{}, errors.New("invalid zoom parameter")
	}
	x, err := strconv.Atoi(vars["x"])
	if err != nil {
		return domain.Tile{}, errors.New("invalid x parameter")
	}
	y, err := strconv.Atoi(vars["y"])
	if err != nil {
		return domain.Tile{}, errors.New("invalid y parameter")
	}
	return domain.NewTile(zoom, x, y)
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":     boolToStatus(details.Healthy),
		"ready":      details.Ready,
		"layers":     details.LayerRows,
		"components": details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleSpoolScan triggers a spool scan.
func (s *Server) handleSpoolScan(w http.ResponseWriter, r *http.Request) {
	if s.spool == nil {
		s.writeError(w, http.StatusNotFound, "Spool service not available")
		return
	}

	result, err := s.spool.TriggerScan(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
			return
		}
		s.logger.Error("spool scan failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Scan failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// handleQueryError maps query errors to HTTP statuses.
func (s *Server) handleQueryError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	if errors.Is(err, domain.ErrInvalidTile) {
		s.writeError(w, http.StatusBadRequest, "Invalid tile address")
		return
	}

	if errors.Is(err, domain.ErrLayerNotFound) {
		s.writeError(w, http.StatusNotFound, "Layer not found")
		return
	}

	// Store failures carry the collaborator's message into the response
	// body so operators see the cause without consulting the logs.
	s.logger.Error("query error", "error", err)
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

// writeGeoJSON writes a pre-rendered GeoJSON document.
func (s *Server) writeGeoJSON(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
