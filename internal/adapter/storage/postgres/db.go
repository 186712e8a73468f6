package postgres

import (
	"context"
	"errors"
	"fmt"

	"crypto-checkout-gateway/config"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Pool is the subset of *pgxpool.Pool the repositories use. pgxmock satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

var (
	_ ports.ProjectRepository         = (*ProjectRepo)(nil)
	_ ports.APITokenRepository        = (*APITokenRepo)(nil)
	_ ports.PaymentRepository         = (*PaymentRepo)(nil)
	_ ports.EventRepository           = (*EventRepo)(nil)
	_ ports.WebhookEndpointRepository = (*WebhookEndpointRepo)(nil)
	_ ports.EventDeliveryRepository   = (*EventDeliveryRepo)(nil)
	_ ports.AuditRepository           = (*AuditRepo)(nil)
	_ ports.DBTransactor              = (*Transactor)(nil)
	_ ports.HealthChecker             = (*HealthCheck)(nil)
)

// NewPool creates a PostgreSQL connection pool using pgx.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("dbname", cfg.DBName).
		Int32("max_conns", cfg.MaxConns).
		Msg("PostgreSQL connection pool established")

	return pool, nil
}

// Transactor implements ports.DBTransactor. Every transaction runs at
// READ COMMITTED; the conditional PENDING updates rely on row locks, not on
// snapshot isolation.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a Transactor over pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a read-write transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// ErrSchemaMissing reports a reachable database that has not been migrated.
var ErrSchemaMissing = errors.New("checkout schema missing, run `api migrate up`")

// HealthCheck implements ports.HealthChecker. Healthy means reachable and migrated.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping verifies connectivity and that the payments table exists.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.pool.Ping(ctx); err != nil {
		return err
	}
	var migrated bool
	if err := h.pool.QueryRow(ctx, `SELECT to_regclass('public.payments') IS NOT NULL`).Scan(&migrated); err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !migrated {
		return ErrSchemaMissing
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
