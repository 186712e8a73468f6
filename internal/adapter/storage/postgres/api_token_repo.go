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

const apiTokenColumns = `id, project_id, name, prefix, token_hash, environment, status, last_used_at, request_count, created_at`

// APITokenRepo implements ports.APITokenRepository.
type APITokenRepo struct {
	pool Pool
}

// NewAPITokenRepo creates a new APITokenRepo.
func NewAPITokenRepo(pool Pool) *APITokenRepo {
	return &APITokenRepo{pool: pool}
}

// Create inserts a new API token.
func (r *APITokenRepo) Create(ctx context.Context, t *domain.APIToken) error {
	query := `INSERT INTO api_tokens (` + apiTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.ProjectID, t.Name, t.Prefix, t.TokenHash,
		t.Environment, t.Status, t.LastUsedAt, t.RequestCount, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api token: %w", err)
	}
	return nil
}

// GetByID fetches an API token by its UUID.
func (r *APITokenRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIToken, error) {
	query := `SELECT ` + apiTokenColumns + ` FROM api_tokens WHERE id = $1`

	t, err := scanAPIToken(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get api token by id: %w", err)
	}
	return t, nil
}

// ListActiveByPrefix returns the active tokens sharing a key prefix.
// Hash verification of the candidates happens in the service layer.
func (r *APITokenRepo) ListActiveByPrefix(ctx context.Context, prefix string) ([]domain.APIToken, error) {
	query := `SELECT ` + apiTokenColumns + ` FROM api_tokens WHERE prefix = $1 AND status = 'ACTIVE'`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("list api tokens by prefix: %w", err)
	}
	defer rows.Close()

	var tokens []domain.APIToken
	for rows.Next() {
		t, err := scanAPIToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api token row: %w", err)
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api token rows: %w", err)
	}
	return tokens, nil
}

// RecordUsage bumps the request counter and last-used timestamp inside tx.
func (r *APITokenRepo) RecordUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE api_tokens SET request_count = request_count + 1, last_used_at = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, usedAt, id)
	if err != nil {
		return fmt.Errorf("record api token usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api token not found: %s", id)
	}
	return nil
}

func scanAPIToken(row pgx.Row) (*domain.APIToken, error) {
	t := &domain.APIToken{}
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Name, &t.Prefix, &t.TokenHash,
		&t.Environment, &t.Status, &t.LastUsedAt, &t.RequestCount, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
