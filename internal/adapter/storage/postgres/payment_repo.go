package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation          = "23505"
	idempotencyKeyConstraint = "payments_idempotency_key_key"
)

const paymentColumns = `id, project_id, api_token_id, amount, recipient_address, idempotency_key,
		status, transaction_signature, block_number, confirmed_at, created_at, updated_at`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a payment within a database transaction. A clash on the
// idempotency key is reported as ports.ErrDuplicateIdempotencyKey.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.ProjectID, p.APITokenID, p.Amount, p.RecipientAddress, p.IdempotencyKey,
		p.Status, p.TransactionSignature, p.BlockNumber, p.ConfirmedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == idempotencyKeyConstraint {
			return ports.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// CreateProducts inserts the line items of a payment within a database transaction.
func (r *PaymentRepo) CreateProducts(ctx context.Context, tx pgx.Tx, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	query := `INSERT INTO products (id, payment_id, name, price, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, p := range products {
		if _, err := tx.Exec(ctx, query, p.ID, p.PaymentID, p.Name, p.Price, p.Metadata, p.CreatedAt); err != nil {
			return fmt.Errorf("insert product %q: %w", p.Name, err)
		}
	}
	return nil
}

// GetByID fetches a payment by its UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey fetches a payment by its project-scoped idempotency key.
func (r *PaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, key))
}

// ListProducts returns a payment's line items in insertion order.
func (r *PaymentRepo) ListProducts(ctx context.Context, paymentID uuid.UUID) ([]domain.Product, error) {
	query := `SELECT id, payment_id, name, price, metadata, created_at
		FROM products WHERE payment_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.PaymentID, &p.Name, &p.Price, &p.Metadata, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// MarkConfirmed moves a PENDING payment to CONFIRMED and records the chain facts.
// It reports false when the payment was no longer PENDING.
func (r *PaymentRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, c domain.ChainConfirmation) (bool, error) {
	query := `UPDATE payments
		SET status = 'CONFIRMED', transaction_signature = $1, block_number = $2, confirmed_at = $3, updated_at = $3
		WHERE id = $4 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, c.Signature, c.Slot, c.ConfirmedAt, id)
	if err != nil {
		return false, fmt.Errorf("confirm payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves a PENDING payment to FAILED. It reports false when the
// payment was no longer PENDING.
func (r *PaymentRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, failedAt time.Time) (bool, error) {
	query := `UPDATE payments SET status = 'FAILED', updated_at = $1 WHERE id = $2 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, failedAt, id)
	if err != nil {
		return false, fmt.Errorf("fail payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListPendingCreatedBefore returns the oldest PENDING payments created before cutoff.
func (r *PaymentRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = 'PENDING' AND created_at < $1 ORDER BY created_at LIMIT $2`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}

// scanPayment scans a single row, mapping no rows to nil, nil.
func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p, err := scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}

func scanPaymentRow(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.ProjectID, &p.APITokenID, &p.Amount, &p.RecipientAddress, &p.IdempotencyKey,
		&p.Status, &p.TransactionSignature, &p.BlockNumber, &p.ConfirmedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
