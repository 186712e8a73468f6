package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateIdempotencyKey is returned by PaymentRepository.Create when another
// payment already holds the idempotency key.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// ProjectRepository reads projects. Projects are owned by the dashboard.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
}

// APITokenRepository defines persistence operations for API tokens.
type APITokenRepository interface {
	Create(ctx context.Context, token *domain.APIToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIToken, error)
	ListActiveByPrefix(ctx context.Context, prefix string) ([]domain.APIToken, error)
	RecordUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID, usedAt time.Time) error
}

// PaymentRepository defines persistence operations for payments and their products.
// State transitions are conditional on the PENDING status and report whether a row changed.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	CreateProducts(ctx context.Context, tx pgx.Tx, products []domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	ListProducts(ctx context.Context, paymentID uuid.UUID) ([]domain.Product, error)
	MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, confirmation domain.ChainConfirmation) (bool, error)
	MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, failedAt time.Time) (bool, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error)
}

// EventRepository defines persistence operations for payment events.
type EventRepository interface {
	Create(ctx context.Context, tx pgx.Tx, event *domain.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Event, error)
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.Event, error)
	// Transition sets the event type and merges patch into the stored metadata.
	Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, eventType domain.EventType, patch map[string]any) error
}

// WebhookEndpointRepository defines persistence operations for merchant endpoints.
type WebhookEndpointRepository interface {
	Create(ctx context.Context, endpoint *domain.WebhookEndpoint) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error)
	ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.EndpointStatus) error
	UpdateSecret(ctx context.Context, id uuid.UUID, secretEnc string) error
	TouchLastHit(ctx context.Context, id uuid.UUID, at time.Time) error
}

// EventDeliveryRepository defines persistence for the append-only delivery log.
type EventDeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.EventDelivery) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.EventDelivery, error)
	// ListLatestFailed returns, per (event, endpoint), the newest attempt when it failed
	// and attempt < maxAttempts.
	ListLatestFailed(ctx context.Context, maxAttempts int, limit int) ([]domain.EventDelivery, error)
}

// AuditRepository defines persistence for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
