package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SignatureGuard implements ports.SignatureGuard. It remembers chain signatures
// that already confirmed a payment so indexer retries short-circuit before
// touching PostgreSQL. The conditional PENDING update remains the real guard.
type SignatureGuard struct {
	client goredis.UniversalClient
	prefix string
}

// NewSignatureGuard creates a Redis-backed signature guard.
func NewSignatureGuard(client goredis.UniversalClient) *SignatureGuard {
	return &SignatureGuard{
		client: client,
		prefix: keyPrefix + "sig:",
	}
}

// Seen reports whether the signature was remembered and has not expired.
func (g *SignatureGuard) Seen(ctx context.Context, signature string) (bool, error) {
	n, err := g.client.Exists(ctx, g.prefix+signature).Result()
	if err != nil {
		return false, fmt.Errorf("redis signature check: %w", err)
	}
	return n > 0, nil
}

// Remember records a signature for ttl. A second call keeps the first expiry.
func (g *SignatureGuard) Remember(ctx context.Context, signature string, ttl time.Duration) error {
	err := g.client.SetArgs(ctx, g.prefix+signature, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis signature remember: %w", err)
	}
	return nil
}
