package ports

//go:generate mockgen -source=health.go -destination=mocks/mock_health.go -package=mocks

import "context"

// HealthChecker probes one external dependency: a database, cache or chain
// RPC node. Name is the key it is reported under in GET /health.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// HealthStatus is the outcome of a probe.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// DependencyHealth is one probe's result as reported to operators.
type DependencyHealth struct {
	Status    HealthStatus `json:"status"`
	LatencyMS int64        `json:"latency_ms"`
	Error     string       `json:"error,omitempty"`
}
