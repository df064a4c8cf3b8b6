package services

import (
	"context"
)

// HealthResult is the body of the health endpoint
type HealthResult struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// HealthService implements the health service
type HealthService struct {
	service string
	version string
}

// NewHealthService creates a new health service
func NewHealthService(service, version string) *HealthService {
	return &HealthService{service: service, version: version}
}

// Check reports liveness only; the store is not consulted.
func (s *HealthService) Check(ctx context.Context) *HealthResult {
	return &HealthResult{
		Status:  "ok",
		Service: s.service,
		Version: s.version,
	}
}
