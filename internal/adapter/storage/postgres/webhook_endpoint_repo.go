package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const endpointColumns = `id, project_id, url, secret_enc, status, event_types, description, last_hit_at, created_at, updated_at`

// WebhookEndpointRepo implements ports.WebhookEndpointRepository.
type WebhookEndpointRepo struct {
	pool Pool
}

// NewWebhookEndpointRepo creates a new WebhookEndpointRepo.
func NewWebhookEndpointRepo(pool Pool) *WebhookEndpointRepo {
	return &WebhookEndpointRepo{pool: pool}
}

// Create inserts a webhook endpoint.
func (r *WebhookEndpointRepo) Create(ctx context.Context, w *domain.WebhookEndpoint) error {
	query := `INSERT INTO webhook_endpoints (` + endpointColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.ProjectID, w.URL, w.SecretEnc, w.Status, eventTypesOrEmpty(w.EventTypes),
		w.Description, w.LastHitAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook endpoint: %w", err)
	}
	return nil
}

// GetByID fetches an endpoint by its UUID.
func (r *WebhookEndpointRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints WHERE id = $1`

	w, err := scanEndpoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook endpoint: %w", err)
	}
	return w, nil
}

// ListByProject returns every endpoint of a project, newest first.
func (r *WebhookEndpointRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints
		WHERE project_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, projectID)
}

// ListActiveByProject returns the endpoints that currently receive deliveries.
func (r *WebhookEndpointRepo) ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints
		WHERE project_id = $1 AND status = 'ACTIVE' ORDER BY created_at`
	return r.list(ctx, query, projectID)
}

// UpdateStatus changes an endpoint's status.
func (r *WebhookEndpointRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.EndpointStatus) error {
	return r.update(ctx, `UPDATE webhook_endpoints SET status = $1, updated_at = now() WHERE id = $2`, status, id)
}

// UpdateSecret replaces an endpoint's encrypted signing secret.
func (r *WebhookEndpointRepo) UpdateSecret(ctx context.Context, id uuid.UUID, secretEnc string) error {
	return r.update(ctx, `UPDATE webhook_endpoints SET secret_enc = $1, updated_at = now() WHERE id = $2`, secretEnc, id)
}

// TouchLastHit records the time of the latest successful delivery.
func (r *WebhookEndpointRepo) TouchLastHit(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, `UPDATE webhook_endpoints SET last_hit_at = $1 WHERE id = $2`, at, id)
}

func (r *WebhookEndpointRepo) update(ctx context.Context, query string, value any, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update webhook endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook endpoint not found: %s", id)
	}
	return nil
}

func (r *WebhookEndpointRepo) list(ctx context.Context, query string, projectID uuid.UUID) ([]domain.WebhookEndpoint, error) {
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list webhook endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []domain.WebhookEndpoint
	for rows.Next() {
		w, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook endpoint row: %w", err)
		}
		endpoints = append(endpoints, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook endpoint rows: %w", err)
	}
	return endpoints, nil
}

func scanEndpoint(row pgx.Row) (*domain.WebhookEndpoint, error) {
	w := &domain.WebhookEndpoint{}
	err := row.Scan(
		&w.ID, &w.ProjectID, &w.URL, &w.SecretEnc, &w.Status, &w.EventTypes,
		&w.Description, &w.LastHitAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func eventTypesOrEmpty(types []string) []string {
	if types == nil {
		return []string{}
	}
	return types
}
