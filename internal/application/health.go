package application

import (
	"context"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/ports/input"
	"github.com/chizu-dev/chizu/internal/ports/output"
)

// HealthService provides health check functionality.
type HealthService struct {
	store   output.SpatialStore
	metrics output.MetricsCollector
}

// NewHealthService creates a new health service.
func NewHealthService(store output.SpatialStore, metrics output.MetricsCollector) *HealthService {
	return &HealthService{
		store:   store,
		metrics: metrics,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(ctx context.Context) bool {
	return true // Basic health check
}

// IsReady returns true if the service is ready to accept requests.
func (s *HealthService) IsReady(ctx context.Context) bool {
	return s.store.Ping(ctx) == nil
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	components := map[string]string{"store": "ok"}
	if err := s.store.Ping(ctx); err != nil {
		components["store"] = err.Error()
	}

	rows := map[string]int64{}
	for name := range domain.Layers {
		n, err := s.store.CountLayer(ctx, name)
		if err != nil {
			continue
		}
		rows[string(name)] = n
		s.metrics.SetLayerFeatures(string(name), n)
	}

	return input.HealthDetails{
		Healthy:    s.IsHealthy(ctx),
		Ready:      s.IsReady(ctx),
		LayerRows:  rows,
		Components: components,
	}
}
