package handler

import (
	"context"
	"net/http"
	"time"

	"crypto-checkout-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc/pool"
)

const healthCheckTimeout = 3 * time.Second

type probeResult struct {
	name   string
	health ports.DependencyHealth
}

// HealthCheck handles GET /health. Dependencies are probed concurrently under
// one deadline; any failure turns the answer into 503 "degraded".
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		p := pool.NewWithResults[probeResult]()
		for _, checker := range checkers {
			checker := checker
			p.Go(func() probeResult {
				return probeResult{name: checker.Name(), health: probe(ctx, checker)}
			})
		}

		overall, code := ports.HealthStatusHealthy, http.StatusOK
		deps := make(map[string]ports.DependencyHealth, len(checkers))
		for _, r := range p.Wait() {
			deps[r.name] = r.health
			if r.health.Status != ports.HealthStatusHealthy {
				overall, code = ports.HealthStatusDegraded, http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":       overall,
			"dependencies": deps,
		})
	}
}

func probe(ctx context.Context, checker ports.HealthChecker) ports.DependencyHealth {
	start := time.Now()
	err := checker.Ping(ctx)
	h := ports.DependencyHealth{
		Status:    ports.HealthStatusHealthy,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		h.Status = ports.HealthStatusUnhealthy
		h.Error = err.Error()
	}
	return h
}
