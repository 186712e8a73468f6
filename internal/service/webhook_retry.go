package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// RetryPolicy bounds webhook redelivery.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Backoff returns how long to wait after the given (1-based) failed attempt:
// min(BaseDelay * 2^(attempt-1), MaxDelay).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// WebhookRetryWorker re-sends failed deliveries whose backoff has elapsed.
type WebhookRetryWorker struct {
	deliveryRepo ports.EventDeliveryRepository
	endpointRepo ports.WebhookEndpointRepository
	deliverer    ports.WebhookDeliverer
	policy       RetryPolicy
	batchSize    int
	concurrency  int
	now          func() time.Time
	log          zerolog.Logger
}

// NewWebhookRetryWorker creates a retry worker.
func NewWebhookRetryWorker(
	deliveryRepo ports.EventDeliveryRepository,
	endpointRepo ports.WebhookEndpointRepository,
	deliverer ports.WebhookDeliverer,
	policy RetryPolicy,
	batchSize int,
	log zerolog.Logger,
) *WebhookRetryWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &WebhookRetryWorker{
		deliveryRepo: deliveryRepo,
		endpointRepo: endpointRepo,
		deliverer:    deliverer,
		policy:       policy,
		batchSize:    batchSize,
		concurrency:  8,
		now:          time.Now,
		log:          log,
	}
}

// RunOnce performs one retry pass and returns how many attempts it made.
func (w *WebhookRetryWorker) RunOnce(ctx context.Context) (int, error) {
	failed, err := w.deliveryRepo.ListLatestFailed(ctx, w.policy.MaxAttempts, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing failed deliveries: %w", err)
	}

	now := w.now()
	var retried atomic.Int64
	p := pool.New().WithMaxGoroutines(w.concurrency)

	for i := range failed {
		d := &failed[i]
		if now.Before(d.DeliveredAt.Add(w.policy.Backoff(d.Attempt))) {
			continue
		}

		endpoint, err := w.endpointRepo.GetByID(ctx, d.EndpointID)
		if err != nil {
			w.log.Error().Err(err).Str("endpoint_id", d.EndpointID.String()).Msg("webhook retry: failed to load endpoint")
			continue
		}
		if endpoint == nil || !endpoint.IsActive() {
			continue
		}

		p.Go(func() {
			next := w.deliverer.Redeliver(ctx, d, endpoint)
			retried.Add(1)
			if next != nil && next.Status == domain.DeliveryStatusFailed && next.Attempt >= w.policy.MaxAttempts {
				w.log.Error().
					Str("event_id", d.EventID.String()).
					Str("endpoint_id", d.EndpointID.String()).
					Int("attempts", next.Attempt).
					Msg("webhook retry: attempts exhausted")
			}
		})
	}
	p.Wait()

	return int(retried.Load()), nil
}
