package postgres

import (
	"context"
	"fmt"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const deliveryColumns = `id, event_id, endpoint_id, event_type, payload, attempt, status,
		http_status, response_body, error_message, delivered_at`

// EventDeliveryRepo implements ports.EventDeliveryRepository. Rows are only ever inserted.
type EventDeliveryRepo struct {
	pool Pool
}

// NewEventDeliveryRepo creates a new EventDeliveryRepo.
func NewEventDeliveryRepo(pool Pool) *EventDeliveryRepo {
	return &EventDeliveryRepo{pool: pool}
}

// Create appends one delivery attempt.
func (r *EventDeliveryRepo) Create(ctx context.Context, d *domain.EventDelivery) error {
	query := `INSERT INTO event_deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.EventID, d.EndpointID, d.EventType, d.Payload, d.Attempt, d.Status,
		d.HTTPStatus, d.ResponseBody, d.ErrorMessage, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert event delivery: %w", err)
	}
	return nil
}

// ListByEvent returns every attempt made for an event, newest first.
func (r *EventDeliveryRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.EventDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM event_deliveries
		WHERE event_id = $1 ORDER BY delivered_at DESC, attempt DESC`
	return r.list(ctx, query, eventID)
}

// ListLatestFailed returns, per (event, endpoint) pair, the newest attempt
// when it failed and the attempt budget is not yet spent. Oldest first.
func (r *EventDeliveryRepo) ListLatestFailed(ctx context.Context, maxAttempts int, limit int) ([]domain.EventDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM (
			SELECT DISTINCT ON (event_id, endpoint_id) ` + deliveryColumns + `
			FROM event_deliveries
			ORDER BY event_id, endpoint_id, attempt DESC, delivered_at DESC
		) latest
		WHERE status = 'FAILED' AND attempt < $1
		ORDER BY delivered_at
		LIMIT $2`
	return r.list(ctx, query, maxAttempts, limit)
}

func (r *EventDeliveryRepo) list(ctx context.Context, query string, args ...any) ([]domain.EventDelivery, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list event deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []domain.EventDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event delivery row: %w", err)
		}
		deliveries = append(deliveries, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event delivery rows: %w", err)
	}
	return deliveries, nil
}

func scanDelivery(row pgx.Row) (*domain.EventDelivery, error) {
	d := &domain.EventDelivery{}
	err := row.Scan(
		&d.ID, &d.EventID, &d.EndpointID, &d.EventType, &d.Payload, &d.Attempt, &d.Status,
		&d.HTTPStatus, &d.ResponseBody, &d.ErrorMessage, &d.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
