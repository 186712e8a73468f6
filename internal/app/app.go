// Package app wires configuration, storage, chain access and services into the
// running gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"crypto-checkout-gateway/config"
	solanaChain "crypto-checkout-gateway/internal/adapter/chain/solana"
	httpHandler "crypto-checkout-gateway/internal/adapter/http/handler"
	"crypto-checkout-gateway/internal/adapter/http/middleware"
	pgStorage "crypto-checkout-gateway/internal/adapter/storage/postgres"
	redisStorage "crypto-checkout-gateway/internal/adapter/storage/redis"
	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/internal/service"
	"crypto-checkout-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Stores bundles the persistence ports the services run on.
type Stores struct {
	Projects         ports.ProjectRepository
	Tokens           ports.APITokenRepository
	Payments         ports.PaymentRepository
	Events           ports.EventRepository
	Endpoints        ports.WebhookEndpointRepository
	Deliveries       ports.EventDeliveryRepository
	Audit            ports.AuditRepository
	Transactor       ports.DBTransactor
	IdempotencyCache ports.IdempotencyCache
	SignatureGuard   ports.SignatureGuard      // nil = PENDING check only
	RateLimits       middleware.RateLimitStore // nil = rate limiting disabled
}

// Services holds every business component built from a Stores.
type Services struct {
	Sessions    ports.SessionService
	Builder     ports.TransactionBuilder
	Ingester    ports.ChainIngester
	Deliverer   ports.WebhookDeliverer
	Endpoints   ports.EndpointService
	APITokens   ports.APITokenService
	Audit       *service.AuditService
	Tokens      ports.TokenService
	RetryWorker *service.WebhookRetryWorker
	Sweeper     *service.PaymentExpirySweeper
}

// NewServices builds the services. httpClient sends merchant webhooks.
func NewServices(
	cfg *config.Config,
	stores Stores,
	chains ports.ChainConnectionPool,
	httpClient service.HTTPClient,
	log zerolog.Logger,
) (*Services, error) {
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		return nil, fmt.Errorf("initialising encryption: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret must be set")
	}

	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	mints := domain.DefaultMintRegistry()

	whCfg := service.DefaultWebhookConfig()
	if cfg.Webhook.Timeout > 0 {
		whCfg.Timeout = cfg.Webhook.Timeout
	}
	if cfg.Webhook.MaxResponseBody > 0 {
		whCfg.MaxResponseBody = cfg.Webhook.MaxResponseBody
	}
	deliverer := service.NewWebhookService(stores.Endpoints, stores.Deliveries, encSvc, sigSvc, httpClient, whCfg, logger.Component(log, "webhook"))

	return &Services{
		Sessions: service.NewSessionService(
			stores.Projects, stores.Tokens, stores.Payments, stores.Events,
			stores.IdempotencyCache, hashSvc, stores.Transactor, mints,
			cfg.Checkout.SessionTTL, logger.Component(log, "sessions"),
		),
		Builder: service.NewTransactionBuilder(
			stores.Tokens, stores.Payments, stores.Events, chains, mints,
			cfg.Checkout.SessionTTL, logger.Component(log, "builder"),
		),
		Ingester: service.NewIngestService(
			stores.Payments, stores.Events, stores.Transactor, deliverer,
			stores.SignatureGuard, mints, cfg.Ingest.SignatureTTL, logger.Component(log, "ingest"),
		),
		Deliverer: deliverer,
		Endpoints: service.NewEndpointService(stores.Endpoints, stores.Deliveries, stores.Events, encSvc),
		APITokens: service.NewAPITokenService(stores.Projects, stores.Tokens, hashSvc),
		Audit:     service.NewAuditService(stores.Audit, logger.Component(log, "audit")),
		Tokens:    service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer),
		RetryWorker: service.NewWebhookRetryWorker(
			stores.Deliveries, stores.Endpoints, deliverer,
			service.RetryPolicy{
				MaxAttempts: cfg.Webhook.MaxAttempts,
				BaseDelay:   cfg.Webhook.RetryBaseDelay,
				MaxDelay:    cfg.Webhook.RetryMaxDelay,
			},
			cfg.Webhook.RetryBatchSize, logger.Component(log, "webhook-retry"),
		),
		Sweeper: service.NewPaymentExpirySweeper(
			stores.Payments, stores.Events, stores.Transactor, deliverer,
			cfg.Checkout.FailAfter, cfg.Checkout.ExpiryBatch, logger.Component(log, "payment-expiry"),
		),
	}, nil
}

// Close flushes queued audit entries.
func (s *Services) Close() {
	s.Audit.Close()
}

// Router builds the HTTP engine for the services.
func (s *Services) Router(cfg *config.Config, stores Stores, checkers []ports.HealthChecker, log zerolog.Logger) *gin.Engine {
	return httpHandler.SetupRouter(httpHandler.RouterDeps{
		SessionSvc:       s.Sessions,
		Builder:          s.Builder,
		Ingester:         s.Ingester,
		EndpointSvc:      s.Endpoints,
		TokenSvc:         s.Tokens,
		AuditSvc:         s.Audit,
		RateLimitStore:   stores.RateLimits,
		HealthCheckers:   checkers,
		IngestAuthHeader: cfg.Ingest.AuthHeader,
		IngestSecret:     cfg.Ingest.SharedSecret,
		Logger:           log,
	})
}

// Schedule registers the background passes: webhook redelivery and payment expiry.
func (s *Services) Schedule(sched *service.Scheduler, cfg *config.Config) error {
	if err := sched.Register("webhook-retry", cfg.Webhook.RetrySchedule, jobTimeout, s.RetryWorker.RunOnce); err != nil {
		return err
	}
	return sched.Register("payment-expiry", cfg.Checkout.ExpirySchedule, jobTimeout, s.Sweeper.RunOnce)
}

const (
	jobTimeout      = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// App is the assembled gateway with its open connections.
type App struct {
	Services  *Services
	Stores    Stores
	Router    *gin.Engine
	Scheduler *service.Scheduler

	cfg     *config.Config
	log     zerolog.Logger
	closers []func()
}

// Build connects to PostgreSQL and Redis, prepares the chain pool and wires
// every component.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	chains, err := solanaChain.NewConnectionPool(cfg.Chain, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configuring chain access: %w", err)
	}

	a.Stores = Stores{
		Projects:         pgStorage.NewProjectRepo(pool),
		Tokens:           pgStorage.NewAPITokenRepo(pool),
		Payments:         pgStorage.NewPaymentRepo(pool),
		Events:           pgStorage.NewEventRepo(pool),
		Endpoints:        pgStorage.NewWebhookEndpointRepo(pool),
		Deliveries:       pgStorage.NewEventDeliveryRepo(pool),
		Audit:            pgStorage.NewAuditRepo(pool),
		Transactor:       pgStorage.NewTransactor(pool),
		IdempotencyCache: redisStorage.NewIdempotencyCache(rdb),
		SignatureGuard:   redisStorage.NewSignatureGuard(rdb),
		RateLimits:       redisStorage.NewRateLimitStore(rdb),
	}

	httpClient := &http.Client{Timeout: cfg.Webhook.Timeout}
	a.Services, err = NewServices(cfg, a.Stores, chains, httpClient, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.Services.Close)

	checkers := []ports.HealthChecker{
		pgStorage.NewHealthCheck(pool),
		redisStorage.NewHealthCheck(rdb),
	}
	for _, network := range []domain.Network{domain.NetworkDevnet, domain.NetworkMainnet} {
		if client, err := chains.Client(network); err == nil {
			checkers = append(checkers, solanaChain.NewHealthCheck(client))
		}
	}

	a.Router = a.Services.Router(cfg, a.Stores, checkers, log)
	a.Scheduler = service.NewScheduler(logger.Component(log, "scheduler"))
	if err := a.Services.Schedule(a.Scheduler, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Run serves HTTP and the background jobs until ctx is cancelled, then shuts
// both down gracefully.
func (a *App) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		<-a.Scheduler.Stop().Done()
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Server forced to shutdown")
	}

	select {
	case <-a.Scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		a.log.Warn().Msg("background jobs still running at shutdown")
	}

	a.log.Info().Msg("Server exited")
	return nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
