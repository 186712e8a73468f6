package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// Recoverable per-transaction outcomes. Each one skips the transaction and
// leaves the payment untouched.
var (
	ErrMemoDecode        = errors.New("memo decode failure")
	ErrAmountMismatch    = errors.New("amount mismatch")
	ErrTransactionFailed = errors.New("transaction failed on chain")
	ErrNoTokenTransfers  = errors.New("no token transfers")
	ErrUnknownSession    = errors.New("unknown session")
	ErrAlreadyProcessed  = errors.New("payment already processed")
	ErrRecipientMismatch = errors.New("no transfer to the payment recipient")
	ErrUnsupportedMint   = errors.New("transfer mint is not accepted for this payment")
	ErrMissingSignature  = errors.New("transaction has no signature")
)

var skipErrors = []error{
	ErrMemoDecode, ErrAmountMismatch, ErrTransactionFailed, ErrNoTokenTransfers,
	ErrUnknownSession, ErrAlreadyProcessed, ErrRecipientMismatch, ErrUnsupportedMint,
	ErrMissingSignature,
}

// IsSkip reports whether err is a recoverable per-transaction outcome.
func IsSkip(err error) bool {
	for _, target := range skipErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ingestService implements ports.ChainIngester.
type ingestService struct {
	paymentRepo  ports.PaymentRepository
	eventRepo    ports.EventRepository
	transactor   ports.DBTransactor
	deliverer    ports.WebhookDeliverer
	guard        ports.SignatureGuard
	mints        *domain.MintRegistry
	memos        *MemoDecoder
	signatureTTL time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewIngestService creates the chain confirmation ingester.
// guard may be nil, in which case only the PENDING check deduplicates.
func NewIngestService(
	paymentRepo ports.PaymentRepository,
	eventRepo ports.EventRepository,
	transactor ports.DBTransactor,
	deliverer ports.WebhookDeliverer,
	guard ports.SignatureGuard,
	mints *domain.MintRegistry,
	signatureTTL time.Duration,
	log zerolog.Logger,
) ports.ChainIngester {
	return &ingestService{
		paymentRepo:  paymentRepo,
		eventRepo:    eventRepo,
		transactor:   transactor,
		deliverer:    deliverer,
		guard:        guard,
		mints:        mints,
		memos:        NewMemoDecoder(),
		signatureTTL: signatureTTL,
		now:          time.Now,
		log:          log,
	}
}

// Ingest processes a batch sequentially. A failing item never aborts the batch.
func (s *ingestService) Ingest(ctx context.Context, txs []ports.ChainTransaction) ports.IngestSummary {
	summary := ports.IngestSummary{Received: len(txs)}

	for i := range txs {
		tx := &txs[i]
		err := s.safeProcess(ctx, tx)
		switch {
		case err == nil:
			summary.Confirmed++
		case IsSkip(err):
			summary.Skipped++
			s.log.Debug().Err(err).Str("signature", tx.Signature).Msg("ingest: transaction skipped")
		default:
			summary.Failed++
			s.log.Error().Err(err).Str("signature", tx.Signature).Msg("ingest: transaction failed")
		}
	}

	s.log.Info().
		Int("received", summary.Received).
		Int("confirmed", summary.Confirmed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("ingest: batch processed")
	return summary
}

func (s *ingestService) safeProcess(ctx context.Context, tx *ports.ChainTransaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing transaction: %v", r)
		}
	}()
	return s.process(ctx, tx)
}

func (s *ingestService) process(ctx context.Context, tx *ports.ChainTransaction) error {
	if tx.Signature == "" {
		return ErrMissingSignature
	}
	if tx.Failed {
		return ErrTransactionFailed
	}
	if len(tx.TokenTransfers) == 0 {
		return ErrNoTokenTransfers
	}

	memo, err := s.memos.Decode(tx.Instructions)
	if err != nil {
		return err
	}

	if s.guard != nil {
		seen, err := s.guard.Seen(ctx, tx.Signature)
		if err != nil {
			s.log.Warn().Err(err).Str("signature", tx.Signature).Msg("ingest: signature guard unavailable")
		} else if seen {
			return ErrAlreadyProcessed
		}
	}

	event, err := s.eventRepo.GetBySessionID(ctx, memo.SessionID)
	if err != nil {
		return fmt.Errorf("loading event: %w", err)
	}
	if event == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSession, memo.SessionID)
	}

	payment, err := s.paymentRepo.GetByID(ctx, event.PaymentID)
	if err != nil {
		return fmt.Errorf("loading payment: %w", err)
	}
	if payment == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSession, memo.SessionID)
	}
	if !payment.IsPending() {
		return ErrAlreadyProcessed
	}

	transfer := findRecipientTransfer(tx.TokenTransfers, payment.RecipientAddress)
	if transfer == nil {
		return ErrRecipientMismatch
	}

	mint, ok := s.mints.Lookup(transfer.Mint)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedMint, transfer.Mint)
	}
	if want := event.MetaString(domain.MetaNetwork); want != "" && want != string(mint.Network) {
		return fmt.Errorf("%w: %s is on %s", ErrUnsupportedMint, transfer.Mint, mint.Network)
	}

	declared, _ := memo.AmountValue()
	expected := float64(payment.Amount) / domain.MicroUnitsPerToken
	if !domain.AmountsMatch(declared, transfer.TokenAmount) || !domain.AmountsMatch(expected, transfer.TokenAmount) {
		s.log.Warn().
			Str("signature", tx.Signature).
			Str("session_id", memo.SessionID).
			Str("payment_id", payment.ID.String()).
			Float64("declared", declared).
			Float64("expected", expected).
			Float64("actual", transfer.TokenAmount).
			Msg("ingest: amount mismatch, payment left pending for manual review")
		return ErrAmountMismatch
	}

	confirmedAt := s.now().UTC()
	if tx.Timestamp > 0 {
		confirmedAt = time.Unix(tx.Timestamp, 0).UTC()
	}
	confirmation := domain.ChainConfirmation{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		ConfirmedAt: confirmedAt,
	}
	patch := map[string]any{
		domain.MetaTransactionSignature: tx.Signature,
		domain.MetaBlockNumber:          tx.Slot,
		domain.MetaConfirmedAt:          confirmedAt.Format(time.RFC3339),
		domain.MetaNetwork:              string(mint.Network),
		domain.MetaTokenMint:            transfer.Mint,
		domain.MetaToken:                string(mint.Symbol),
		domain.MetaWalletAddress:        transfer.FromUserAccount,
	}

	if err := s.confirm(ctx, payment, event, confirmation, patch); err != nil {
		return err
	}

	s.log.Info().
		Str("signature", tx.Signature).
		Str("session_id", event.SessionID).
		Str("payment_id", payment.ID.String()).
		Int64("slot", tx.Slot).
		Msg("ingest: payment confirmed")

	if s.guard != nil {
		if err := s.guard.Remember(ctx, tx.Signature, s.signatureTTL); err != nil {
			s.log.Warn().Err(err).Str("signature", tx.Signature).Msg("ingest: failed to remember signature")
		}
	}

	payment.Status = domain.PaymentStatusConfirmed
	payment.TransactionSignature = &confirmation.Signature
	payment.BlockNumber = &confirmation.Slot
	payment.ConfirmedAt = &confirmation.ConfirmedAt
	event.Type = domain.EventTypePaymentCompleted
	event.Metadata = domain.MergeMetadata(event.Metadata, patch)

	s.notify(ctx, event, payment)
	return nil
}

// confirm moves the payment and its event in one transaction. A concurrent
// batch that already confirmed the payment makes this a no-op.
func (s *ingestService) confirm(ctx context.Context, payment *domain.Payment, event *domain.Event, c domain.ChainConfirmation, patch map[string]any) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	changed, err := s.paymentRepo.MarkConfirmed(ctx, dbTx, payment.ID, c)
	if err != nil {
		return fmt.Errorf("confirming payment: %w", err)
	}
	if !changed {
		return ErrAlreadyProcessed
	}

	if err := s.eventRepo.Transition(ctx, dbTx, event.ID, domain.EventTypePaymentCompleted, patch); err != nil {
		return fmt.Errorf("updating event: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("committing confirmation: %w", err)
	}
	return nil
}

// notify runs after commit; nothing it does can undo the confirmation.
func (s *ingestService) notify(ctx context.Context, event *domain.Event, payment *domain.Payment) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("event_id", event.ID.String()).Msg("ingest: webhook dispatch panicked")
		}
	}()

	products, err := s.paymentRepo.ListProducts(ctx, payment.ID)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("ingest: failed to load products for webhook")
	}

	s.deliverer.Deliver(ctx, ports.DeliveryRequest{
		EventID:   event.ID,
		ProjectID: event.ProjectID,
		EventType: event.Type,
		Payload:   BuildPaymentPayload(event, payment, products, s.now()),
	})
}

func findRecipientTransfer(transfers []ports.TokenTransfer, recipient string) *ports.TokenTransfer {
	for i := range transfers {
		if transfers[i].ToUserAccount == recipient {
			return &transfers[i]
		}
	}
	return nil
}
