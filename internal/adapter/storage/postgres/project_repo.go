package postgres

import (
	"context"
	"errors"
	"fmt"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProjectRepo implements ports.ProjectRepository.
type ProjectRepo struct {
	pool Pool
}

// NewProjectRepo creates a new ProjectRepo.
func NewProjectRepo(pool Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

// GetByID fetches a project by its UUID. It returns nil, nil when absent.
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT id, name, wallet_address, created_at FROM projects WHERE id = $1`

	p := &domain.Project{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.WalletAddress, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return p, nil
}
