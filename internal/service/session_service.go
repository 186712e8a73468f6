package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// DefaultSessionTTL is how long a checkout session accepts new transactions.
const DefaultSessionTTL = 15 * time.Minute

// cachedSession is the idempotency cache value.
type cachedSession struct {
	SessionID string    `json:"sessionId"`
	PaymentID uuid.UUID `json:"paymentId"`
	ProjectID uuid.UUID `json:"projectId"`
}

// sessionService implements ports.SessionService.
type sessionService struct {
	projectRepo ports.ProjectRepository
	tokenRepo   ports.APITokenRepository
	paymentRepo ports.PaymentRepository
	eventRepo   ports.EventRepository
	idempCache  ports.IdempotencyCache
	hashSvc     ports.HashService
	transactor  ports.DBTransactor
	mints       *domain.MintRegistry
	sessionTTL  time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewSessionService creates the payment session service.
func NewSessionService(
	projectRepo ports.ProjectRepository,
	tokenRepo ports.APITokenRepository,
	paymentRepo ports.PaymentRepository,
	eventRepo ports.EventRepository,
	idempCache ports.IdempotencyCache,
	hashSvc ports.HashService,
	transactor ports.DBTransactor,
	mints *domain.MintRegistry,
	sessionTTL time.Duration,
	log zerolog.Logger,
) ports.SessionService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &sessionService{
		projectRepo: projectRepo,
		tokenRepo:   tokenRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		idempCache:  idempCache,
		hashSvc:     hashSvc,
		transactor:  transactor,
		mints:       mints,
		sessionTTL:  sessionTTL,
		now:         time.Now,
		log:         log,
	}
}

// CreateSession validates the API key, then creates the payment, its products and
// its event atomically. A repeated idempotency key returns the existing session.
func (s *sessionService) CreateSession(ctx context.Context, req ports.CreateSessionRequest) (*ports.CreateSessionResult, error) {
	if len(req.Products) == 0 {
		return nil, apperror.Validation("at least one product is required")
	}

	token, err := s.authenticate(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(token.ProjectID, req.IdempotencyKey)
		existing, err := s.findExisting(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	products := make([]domain.Product, 0, len(req.Products))
	prices := make([]float64, 0, len(req.Products))
	for _, p := range req.Products {
		price, err := domain.ToMicroUnits(p.Price)
		if err != nil || price < 0 {
			return nil, apperror.ErrInvalidAmount()
		}
		prices = append(prices, p.Price)
		products = append(products, domain.Product{
			ID:       uuid.New(),
			Name:     p.Name,
			Price:    price,
			Metadata: p.Metadata,
		})
	}
	total, err := domain.SumMicroUnits(prices)
	if err != nil || total <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	project, err := s.projectRepo.GetByID(ctx, token.ProjectID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load project: %w", err))
	}
	if project == nil {
		return nil, apperror.ErrNotFound("Project")
	}

	now := s.now().UTC()
	payment := &domain.Payment{
		ID:               uuid.New(),
		ProjectID:        project.ID,
		APITokenID:       token.ID,
		Amount:           total,
		RecipientAddress: project.WalletAddress,
		Status:           domain.PaymentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if idempKey != "" {
		payment.IdempotencyKey = &idempKey
	}
	for i := range products {
		products[i].PaymentID = payment.ID
		products[i].CreatedAt = now
	}

	merchantMeta := req.Metadata
	if merchantMeta == nil {
		merchantMeta = map[string]any{}
	}
	event := &domain.Event{
		ID:        uuid.New(),
		PaymentID: payment.ID,
		ProjectID: project.ID,
		SessionID: uuid.NewString(),
		Type:      domain.EventTypePayment,
		Metadata: map[string]any{
			domain.MetaMerchant: merchantMeta,
			domain.MetaNetwork:  string(token.Environment.Network()),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.paymentRepo.Create(ctx, dbTx, payment); err != nil {
		if errors.Is(err, ports.ErrDuplicateIdempotencyKey) {
			// A concurrent request with the same key committed first.
			_ = dbTx.Rollback(ctx)
			return s.replayAfterConflict(ctx, idempKey)
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create payment: %w", err))
	}
	if err := s.paymentRepo.CreateProducts(ctx, dbTx, products); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create products: %w", err))
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create event: %w", err))
	}
	if err := s.tokenRepo.RecordUsage(ctx, dbTx, token.ID, now); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("record token usage: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	result := &ports.CreateSessionResult{
		SessionID: event.SessionID,
		PaymentID: payment.ID,
		ProjectID: project.ID,
	}
	if idempKey != "" {
		s.cache(ctx, idempKey, result)
	}

	s.log.Info().
		Str("session_id", event.SessionID).
		Str("payment_id", payment.ID.String()).
		Str("project_id", project.ID.String()).
		Int64("amount", total).
		Int("products", len(products)).
		Msg("payment session created")

	return result, nil
}

// GetSession returns the public checkout view of a session.
func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*ports.SessionView, error) {
	event, payment, err := loadSession(ctx, s.eventRepo, s.paymentRepo, sessionID)
	if err != nil {
		return nil, err
	}

	products, err := s.paymentRepo.ListProducts(ctx, payment.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list products: %w", err))
	}

	network, err := sessionNetwork(ctx, s.tokenRepo, event, payment)
	if err != nil {
		return nil, err
	}

	return &ports.SessionView{
		SessionID:            event.SessionID,
		PaymentID:            payment.ID,
		Status:               payment.Status,
		Amount:               payment.Amount,
		RecipientAddress:     payment.RecipientAddress,
		Network:              network,
		Tokens:               s.mints.Symbols(network),
		Products:             products,
		TransactionSignature: payment.TransactionSignature,
		CreatedAt:            payment.CreatedAt,
		ExpiresAt:            payment.CreatedAt.Add(s.sessionTTL),
	}, nil
}

// authenticate narrows candidates by key prefix and verifies the Argon2id hash.
func (s *sessionService) authenticate(ctx context.Context, apiKey string) (*domain.APIToken, error) {
	if apiKey == "" {
		return nil, apperror.ErrInvalidCredential()
	}

	candidates, err := s.tokenRepo.ListActiveByPrefix(ctx, domain.APIKeyPrefix(apiKey))
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup api token: %w", err))
	}

	for i := range candidates {
		tok := &candidates[i]
		if !tok.IsActive() {
			continue
		}
		ok, err := s.hashSvc.Verify(apiKey, tok.TokenHash)
		if err != nil {
			s.log.Warn().Err(err).Str("token_id", tok.ID.String()).Msg("api token hash verification failed")
			continue
		}
		if ok {
			return tok, nil
		}
	}
	return nil, apperror.ErrInvalidCredential()
}

// findExisting checks Redis first, then Postgres.
func (s *sessionService) findExisting(ctx context.Context, idempKey string) (*ports.CreateSessionResult, error) {
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		var c cachedSession
		if err := json.Unmarshal(cached, &c); err == nil && c.SessionID != "" {
			return &ports.CreateSessionResult{
				SessionID: c.SessionID,
				PaymentID: c.PaymentID,
				ProjectID: c.ProjectID,
				Replayed:  true,
			}, nil
		}
		s.log.Warn().Str("key", idempKey).Msg("ignoring malformed idempotency cache entry")
	}

	payment, err := s.paymentRepo.GetByIdempotencyKey(ctx, idempKey)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("db idempotency check: %w", err))
	}
	if payment == nil {
		return nil, nil
	}

	event, err := s.eventRepo.GetByPaymentID(ctx, payment.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load event: %w", err))
	}
	if event == nil {
		return nil, apperror.InternalError(fmt.Errorf("payment %s has no event", payment.ID))
	}

	result := &ports.CreateSessionResult{
		SessionID: event.SessionID,
		PaymentID: payment.ID,
		ProjectID: payment.ProjectID,
		Replayed:  true,
	}
	s.cache(ctx, idempKey, result)
	return result, nil
}

func (s *sessionService) replayAfterConflict(ctx context.Context, idempKey string) (*ports.CreateSessionResult, error) {
	existing, err := s.findExisting(ctx, idempKey)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency key %q conflicted but no payment holds it", idempKey))
	}
	s.log.Info().Str("key", idempKey).Str("session_id", existing.SessionID).Msg("idempotency conflict resolved to existing session")
	return existing, nil
}

// cache is best-effort.
func (s *sessionService) cache(ctx context.Context, idempKey string, r *ports.CreateSessionResult) {
	b, err := json.Marshal(cachedSession{SessionID: r.SessionID, PaymentID: r.PaymentID, ProjectID: r.ProjectID})
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, idempKey, b, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
	}
}

// loadSession resolves a public session id to its event and payment.
func loadSession(ctx context.Context, eventRepo ports.EventRepository, paymentRepo ports.PaymentRepository, sessionID string) (*domain.Event, *domain.Payment, error) {
	event, err := eventRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(fmt.Errorf("load event: %w", err))
	}
	if event == nil {
		return nil, nil, apperror.ErrNotFound("Session")
	}
	payment, err := paymentRepo.GetByID(ctx, event.PaymentID)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(fmt.Errorf("load payment: %w", err))
	}
	if payment == nil {
		return nil, nil, apperror.ErrNotFound("Session")
	}
	return event, payment, nil
}

// sessionNetwork reads the network recorded at creation, falling back to the
// environment of the API token that created the payment.
func sessionNetwork(ctx context.Context, tokenRepo ports.APITokenRepository, event *domain.Event, payment *domain.Payment) (domain.Network, error) {
	if n := event.MetaString(domain.MetaNetwork); n != "" {
		return domain.Network(n), nil
	}
	tok, err := tokenRepo.GetByID(ctx, payment.APITokenID)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("load api token: %w", err))
	}
	if tok == nil {
		return "", apperror.ErrNotFound("API token")
	}
	return tok.Environment.Network(), nil
}
