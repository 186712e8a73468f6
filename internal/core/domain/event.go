package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the lifecycle marker of a payment's event record.
type EventType string

const (
	EventTypePayment          EventType = "PAYMENT"
	EventTypePaymentCompleted EventType = "PAYMENT_COMPLETED"
	EventTypePaymentFailed    EventType = "PAYMENT_FAILED"
	EventTypePaymentPending   EventType = "PAYMENT_PENDING"
)

// Webhook event names as seen by merchant endpoints.
const (
	WebhookEventPaymentCreated   = "payment.created"
	WebhookEventPaymentCompleted = "payment.completed"
	WebhookEventPaymentFailed    = "payment.failed"
	WebhookEventPaymentPending   = "payment.pending"
)

// WebhookName maps the internal event type to the name endpoints subscribe to.
func (t EventType) WebhookName() string {
	switch t {
	case EventTypePaymentCompleted:
		return WebhookEventPaymentCompleted
	case EventTypePaymentFailed:
		return WebhookEventPaymentFailed
	case EventTypePaymentPending:
		return WebhookEventPaymentPending
	default:
		return WebhookEventPaymentCreated
	}
}

// Event metadata keys written by the gateway itself.
const (
	MetaMerchant             = "metadata"
	MetaTransactionSignature = "transactionSignature"
	MetaBlockNumber          = "blockNumber"
	MetaConfirmedAt          = "confirmedAt"
	MetaNetwork              = "network"
	MetaTokenMint            = "tokenMint"
	MetaToken                = "token"
	MetaWalletAddress        = "walletAddress"
	MetaFailureReason        = "failureReason"
)

// Event is the 1:1 companion of a Payment. SessionID is the public handle
// handed to merchants and embedded in the on-chain memo.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	PaymentID uuid.UUID      `json:"payment_id"`
	ProjectID uuid.UUID      `json:"project_id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MerchantMetadata returns the metadata the merchant attached at session creation.
func (e *Event) MerchantMetadata() map[string]any {
	if e.Metadata == nil {
		return nil
	}
	m, _ := e.Metadata[MetaMerchant].(map[string]any)
	return m
}

// MetaString reads a string metadata value, returning "" when absent.
func (e *Event) MetaString(key string) string {
	if e.Metadata == nil {
		return ""
	}
	s, _ := e.Metadata[key].(string)
	return s
}

// MergeMetadata overlays patch onto existing without dropping keys.
func MergeMetadata(existing, patch map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
