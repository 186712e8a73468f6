package service

import (
	"context"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// FailureReasonExpired is recorded on payments nobody paid in time.
const FailureReasonExpired = "expired"

// PaymentExpirySweeper fails PENDING payments older than the fail-after window.
type PaymentExpirySweeper struct {
	paymentRepo ports.PaymentRepository
	eventRepo   ports.EventRepository
	transactor  ports.DBTransactor
	deliverer   ports.WebhookDeliverer
	failAfter   time.Duration
	batchSize   int
	now         func() time.Time
	log         zerolog.Logger
}

// NewPaymentExpirySweeper creates a sweeper.
func NewPaymentExpirySweeper(
	paymentRepo ports.PaymentRepository,
	eventRepo ports.EventRepository,
	transactor ports.DBTransactor,
	deliverer ports.WebhookDeliverer,
	failAfter time.Duration,
	batchSize int,
	log zerolog.Logger,
) *PaymentExpirySweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PaymentExpirySweeper{
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		transactor:  transactor,
		deliverer:   deliverer,
		failAfter:   failAfter,
		batchSize:   batchSize,
		now:         time.Now,
		log:         log,
	}
}

// RunOnce fails one batch of stale payments and returns how many it failed.
func (s *PaymentExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()
	stale, err := s.paymentRepo.ListPendingCreatedBefore(ctx, now.Add(-s.failAfter), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing stale payments: %w", err)
	}

	failed := 0
	for i := range stale {
		p := &stale[i]
		changed, err := s.expire(ctx, p, now)
		if err != nil {
			s.log.Error().Err(err).Str("payment_id", p.ID.String()).Msg("expiry: failed to expire payment")
			continue
		}
		if changed {
			failed++
		}
	}

	if failed > 0 {
		s.log.Info().Int("failed", failed).Msg("expiry: stale payments failed")
	}
	return failed, nil
}

func (s *PaymentExpirySweeper) expire(ctx context.Context, payment *domain.Payment, now time.Time) (bool, error) {
	event, err := s.eventRepo.GetByPaymentID(ctx, payment.ID)
	if err != nil {
		return false, fmt.Errorf("loading event: %w", err)
	}
	if event == nil {
		return false, fmt.Errorf("payment %s has no event", payment.ID)
	}

	patch := map[string]any{domain.MetaFailureReason: FailureReasonExpired}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	changed, err := s.paymentRepo.MarkFailed(ctx, dbTx, payment.ID, now)
	if err != nil {
		return false, fmt.Errorf("failing payment: %w", err)
	}
	if !changed {
		// Confirmed in the meantime.
		return false, nil
	}
	if err := s.eventRepo.Transition(ctx, dbTx, event.ID, domain.EventTypePaymentFailed, patch); err != nil {
		return false, fmt.Errorf("updating event: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing expiry: %w", err)
	}

	payment.Status = domain.PaymentStatusFailed
	payment.UpdatedAt = now
	event.Type = domain.EventTypePaymentFailed
	event.Metadata = domain.MergeMetadata(event.Metadata, patch)

	products, err := s.paymentRepo.ListProducts(ctx, payment.ID)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("expiry: failed to load products for webhook")
	}
	s.deliverer.Deliver(ctx, ports.DeliveryRequest{
		EventID:   event.ID,
		ProjectID: event.ProjectID,
		EventType: event.Type,
		Payload:   BuildPaymentPayload(event, payment, products, now),
	})
	return true, nil
}
