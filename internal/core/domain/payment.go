package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is one merchant-requested charge. Amount is held in micro-units
// (1 token = 1_000_000) so no floating point reaches storage.
type Payment struct {
	ID                   uuid.UUID     `json:"id"`
	ProjectID            uuid.UUID     `json:"project_id"`
	APITokenID           uuid.UUID     `json:"api_token_id"`
	Amount               int64         `json:"amount"`
	RecipientAddress     string        `json:"recipient_address"`
	IdempotencyKey       *string       `json:"idempotency_key,omitempty"` // Format: "project_id:client_key"
	Status               PaymentStatus `json:"status"`
	TransactionSignature *string       `json:"transaction_signature,omitempty"`
	BlockNumber          *int64        `json:"block_number,omitempty"`
	ConfirmedAt          *time.Time    `json:"confirmed_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// IsPending returns true while the payment still accepts a chain confirmation.
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsTerminal returns true if the payment can no longer change state.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusConfirmed || p.Status == PaymentStatusFailed
}

// CheckoutExpired reports whether the checkout window measured from creation has passed.
func (p *Payment) CheckoutExpired(now time.Time, window time.Duration) bool {
	return now.Sub(p.CreatedAt) > window
}

// BuildIdempotencyKey scopes a merchant's Idempotency-Key to its project, the
// form stored in Payment.IdempotencyKey.
func BuildIdempotencyKey(projectID uuid.UUID, clientKey string) string {
	return projectID.String() + ":" + clientKey
}

// Product is an immutable line item of a payment.
type Product struct {
	ID        uuid.UUID      `json:"id"`
	PaymentID uuid.UUID      `json:"payment_id"`
	Name      string         `json:"name"`
	Price     int64          `json:"price"` // micro-units
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChainConfirmation carries the on-chain facts recorded when a payment confirms.
type ChainConfirmation struct {
	Signature   string
	Slot        int64
	ConfirmedAt time.Time
}
