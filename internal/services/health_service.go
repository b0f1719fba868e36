package services

import (
	"context"
	"log/slog"
	"time"

	"bcmaccess/internal/infrastructure"
	"bcmaccess/internal/license"
	"bcmaccess/pkg/contracts"
)

// HealthStatus is the aggregate health report of the service.
type HealthStatus struct {
	Status    string             `json:"status"` // healthy|degraded
	Version   string             `json:"version"`
	Store     ComponentHealth    `json:"store"`
	Cache     license.CacheStats `json:"cache"`
	Timestamp time.Time          `json:"timestamp"`
	TraceID   string             `json:"trace_id,omitempty"`
}

// ComponentHealth reports one dependency's reachability.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthService reports on the durable store and grant cache.
type HealthService struct {
	licenses *license.Store
	logger   *slog.Logger
}

// NewHealthService creates the health service
func NewHealthService(licenses *license.Store, logger *slog.Logger) *HealthService {
	return &HealthService{
		licenses: licenses,
		logger:   logger.With(slog.String("service", "health")),
	}
}

// Health checks the durable store and collects cache statistics. A store
// failure degrades the report rather than failing it; the endpoint stays
// useful while the backend is down.
func (s *HealthService) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Version:   contracts.Version,
		Cache:     s.licenses.CacheStats(),
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	}

	if err := s.licenses.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Store = ComponentHealth{Healthy: false, Error: err.Error()}
		s.logger.WarnContext(ctx, "durable store unreachable", slog.String("error", err.Error()))
	} else {
		status.Store = ComponentHealth{Healthy: true}
	}

	return status
}
