package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "crypto-checkout-gateway/internal/adapter/storage/redis"
	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/pkg/apperror"
	"crypto-checkout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitStore counts requests per key and window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Endpoint groups with their own limits.
const (
	GroupSessionCreate = "sessions_create"
	GroupSessionRead   = "sessions_read"
	GroupTransaction   = "transaction_build"
	GroupChainWebhook  = "chain_webhook"
	GroupConsole       = "console"
)

// DefaultRateLimitRules returns the rate limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupSessionCreate: {Limit: 100, Window: time.Minute},
		GroupSessionRead:   {Limit: 120, Window: time.Minute},
		GroupTransaction:   {Limit: 30, Window: time.Minute},
		GroupChainWebhook:  {Limit: 600, Window: time.Minute},
		GroupConsole:       {Limit: 60, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Redis failures degrade to allowing the request.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier picks the rate limit subject: the API key prefix (never
// the full key), then the console project, then the client IP.
func extractIdentifier(c *gin.Context) string {
	if key := c.GetHeader(HeaderAPIKey); key != "" {
		return "key:" + domain.APIKeyPrefix(key)
	}
	if id, ok := ProjectID(c); ok {
		return "project:" + id.String()
	}
	return "ip:" + c.ClientIP()
}
