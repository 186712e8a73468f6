package postgres

import (
	"context"
	"errors"
	"fmt"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, payment_id, project_id, session_id, type, metadata, created_at, updated_at`

// EventRepo implements ports.EventRepository.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Create inserts the event companion of a payment within a database transaction.
func (r *EventRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Event) error {
	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.PaymentID, e.ProjectID, e.SessionID, e.Type, metadataOrEmpty(e.Metadata), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID fetches an event by its UUID.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// GetBySessionID fetches an event by its public session handle.
func (r *EventRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, sessionID))
}

// GetByPaymentID fetches the event belonging to a payment.
func (r *EventRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE payment_id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, paymentID))
}

// Transition sets the event type and merges patch into the stored metadata.
// Keys absent from patch are kept.
func (r *EventRepo) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, eventType domain.EventType, patch map[string]any) error {
	query := `UPDATE events
		SET type = $1, metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb, updated_at = now()
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, eventType, metadataOrEmpty(patch), id)
	if err != nil {
		return fmt.Errorf("transition event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %s", id)
	}
	return nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(&e.ID, &e.PaymentID, &e.ProjectID, &e.SessionID, &e.Type, &e.Metadata, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return e, nil
}

// metadataOrEmpty keeps a nil map from being encoded as SQL NULL.
func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
