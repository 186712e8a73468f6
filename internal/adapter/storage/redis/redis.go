package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"crypto-checkout-gateway/config"
	"crypto-checkout-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	_ ports.IdempotencyCache = (*IdempotencyCache)(nil)
	_ ports.SignatureGuard   = (*SignatureGuard)(nil)
	_ ports.HealthChecker    = (*HealthCheck)(nil)
)

// keyPrefix namespaces every key the gateway writes.
const keyPrefix = "ccg:"

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connectivity
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}

// healthProbeKey is written on every health check so a read-only replica or a
// full instance reports unhealthy, not only an unreachable one.
const healthProbeKey = keyPrefix + "health:probe"

// HealthCheck implements ports.HealthChecker for Redis.
type HealthCheck struct {
	client goredis.UniversalClient
	now    func() time.Time
}

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client goredis.UniversalClient) *HealthCheck {
	return &HealthCheck{client: client, now: time.Now}
}

// Ping verifies that Redis accepts writes.
func (h *HealthCheck) Ping(ctx context.Context) error {
	stamp := strconv.FormatInt(h.now().UnixMilli(), 10)
	if err := h.client.Set(ctx, healthProbeKey, stamp, time.Minute).Err(); err != nil {
		return fmt.Errorf("redis write probe: %w", err)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "redis"
}
