package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory stand-ins for the PostgreSQL repositories. Every read returns a
// copy so services can mutate what they load, as they would a scanned row.

// --- Projects ---

type memProjects struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]domain.Project
}

func newMemProjects() *memProjects {
	return &memProjects{projects: make(map[uuid.UUID]domain.Project)}
}

func (r *memProjects) add(p domain.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
}

func (r *memProjects) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// --- API tokens ---

type memTokens struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]domain.APIToken
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: make(map[uuid.UUID]domain.APIToken)}
}

func (r *memTokens) Create(_ context.Context, t *domain.APIToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.ID] = *t
	return nil
}

func (r *memTokens) GetByID(_ context.Context, id uuid.UUID) (*domain.APIToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memTokens) ListActiveByPrefix(_ context.Context, prefix string) ([]domain.APIToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.APIToken
	for _, t := range r.tokens {
		if t.Prefix == prefix && t.Status == domain.TokenStatusActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTokens) RecordUsage(_ context.Context, _ pgx.Tx, id uuid.UUID, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return errors.New("api token not found")
	}
	t.RequestCount++
	t.LastUsedAt = &usedAt
	r.tokens[id] = t
	return nil
}

// --- Payments and products ---

type memPayments struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]domain.Payment
	products map[uuid.UUID][]domain.Product
}

func newMemPayments() *memPayments {
	return &memPayments{
		payments: make(map[uuid.UUID]domain.Payment),
		products: make(map[uuid.UUID][]domain.Product),
	}
}

func (r *memPayments) Create(_ context.Context, _ pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.IdempotencyKey != nil {
		for _, existing := range r.payments {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *p.IdempotencyKey {
				return ports.ErrDuplicateIdempotencyKey
			}
		}
	}
	r.payments[p.ID] = *p
	return nil
}

func (r *memPayments) CreateProducts(_ context.Context, _ pgx.Tx, products []domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		r.products[p.PaymentID] = append(r.products[p.PaymentID], p)
	}
	return nil
}

func (r *memPayments) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPayments) GetByIdempotencyKey(_ context.Context, key string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.IdempotencyKey != nil && *p.IdempotencyKey == key {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPayments) ListProducts(_ context.Context, paymentID uuid.UUID) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Product(nil), r.products[paymentID]...), nil
}

func (r *memPayments) MarkConfirmed(_ context.Context, _ pgx.Tx, id uuid.UUID, c domain.ChainConfirmation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	p.Status = domain.PaymentStatusConfirmed
	p.TransactionSignature = &c.Signature
	p.BlockNumber = &c.Slot
	p.ConfirmedAt = &c.ConfirmedAt
	p.UpdatedAt = c.ConfirmedAt
	r.payments[id] = p
	return true, nil
}

func (r *memPayments) MarkFailed(_ context.Context, _ pgx.Tx, id uuid.UUID, failedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	p.Status = domain.PaymentStatusFailed
	p.UpdatedAt = failedAt
	r.payments[id] = p
	return true, nil
}

func (r *memPayments) ListPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPayments) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}

// backdate moves every payment's creation time into the past.
func (r *memPayments) backdate(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.payments {
		p.CreatedAt = p.CreatedAt.Add(-d)
		r.payments[id] = p
	}
}

// --- Events ---

type memEvents struct {
	mu     sync.RWMutex
	events map[uuid.UUID]domain.Event
}

func newMemEvents() *memEvents {
	return &memEvents{events: make(map[uuid.UUID]domain.Event)}
}

func (r *memEvents) Create(_ context.Context, _ pgx.Tx, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.events {
		if existing.PaymentID == e.PaymentID || existing.SessionID == e.SessionID {
			return errors.New("duplicate event")
		}
	}
	r.events[e.ID] = cloneEvent(*e)
	return nil
}

func (r *memEvents) GetByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	return r.find(func(e domain.Event) bool { return e.ID == id })
}

func (r *memEvents) GetBySessionID(_ context.Context, sessionID string) (*domain.Event, error) {
	return r.find(func(e domain.Event) bool { return e.SessionID == sessionID })
}

func (r *memEvents) GetByPaymentID(_ context.Context, paymentID uuid.UUID) (*domain.Event, error) {
	return r.find(func(e domain.Event) bool { return e.PaymentID == paymentID })
}

func (r *memEvents) find(match func(domain.Event) bool) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.events {
		if match(e) {
			c := cloneEvent(e)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memEvents) Transition(_ context.Context, _ pgx.Tx, id uuid.UUID, eventType domain.EventType, patch map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return errors.New("event not found")
	}
	e.Type = eventType
	e.Metadata = domain.MergeMetadata(e.Metadata, patch)
	e.UpdatedAt = time.Now()
	r.events[id] = e
	return nil
}

func cloneEvent(e domain.Event) domain.Event {
	e.Metadata = domain.MergeMetadata(nil, e.Metadata)
	return e
}

// --- Webhook endpoints ---

type memEndpoints struct {
	mu        sync.RWMutex
	endpoints map[uuid.UUID]domain.WebhookEndpoint
}

func newMemEndpoints() *memEndpoints {
	return &memEndpoints{endpoints: make(map[uuid.UUID]domain.WebhookEndpoint)}
}

func (r *memEndpoints) Create(_ context.Context, e *domain.WebhookEndpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[e.ID] = *e
	return nil
}

func (r *memEndpoints) GetByID(_ context.Context, id uuid.UUID) (*domain.WebhookEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.endpoints[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *memEndpoints) ListByProject(_ context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error) {
	return r.list(func(e domain.WebhookEndpoint) bool { return e.ProjectID == projectID }), nil
}

func (r *memEndpoints) ListActiveByProject(_ context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error) {
	return r.list(func(e domain.WebhookEndpoint) bool {
		return e.ProjectID == projectID && e.Status == domain.EndpointStatusActive
	}), nil
}

func (r *memEndpoints) list(match func(domain.WebhookEndpoint) bool) []domain.WebhookEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookEndpoint
	for _, e := range r.endpoints {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memEndpoints) update(id uuid.UUID, apply func(*domain.WebhookEndpoint)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.endpoints[id]
	if !ok {
		return errors.New("webhook endpoint not found")
	}
	apply(&e)
	r.endpoints[id] = e
	return nil
}

func (r *memEndpoints) UpdateStatus(_ context.Context, id uuid.UUID, status domain.EndpointStatus) error {
	return r.update(id, func(e *domain.WebhookEndpoint) { e.Status = status })
}

func (r *memEndpoints) UpdateSecret(_ context.Context, id uuid.UUID, secretEnc string) error {
	return r.update(id, func(e *domain.WebhookEndpoint) { e.SecretEnc = secretEnc })
}

func (r *memEndpoints) TouchLastHit(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(e *domain.WebhookEndpoint) { e.LastHitAt = &at })
}

// --- Event deliveries ---

type memDeliveries struct {
	mu         sync.RWMutex
	deliveries []domain.EventDelivery
}

func newMemDeliveries() *memDeliveries {
	return &memDeliveries{}
}

func (r *memDeliveries) Create(_ context.Context, d *domain.EventDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, *d)
	return nil
}

func (r *memDeliveries) ListByEvent(_ context.Context, eventID uuid.UUID) ([]domain.EventDelivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.EventDelivery
	for _, d := range r.deliveries {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDeliveries) ListLatestFailed(_ context.Context, maxAttempts int, limit int) ([]domain.EventDelivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type pair struct{ event, endpoint uuid.UUID }
	latest := make(map[pair]domain.EventDelivery)
	for _, d := range r.deliveries {
		k := pair{d.EventID, d.EndpointID}
		if cur, ok := latest[k]; !ok || d.Attempt > cur.Attempt {
			latest[k] = d
		}
	}

	var out []domain.EventDelivery
	for _, d := range latest {
		if d.Status == domain.DeliveryStatusFailed && d.Attempt < maxAttempts {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeliveredAt.Before(out[j].DeliveredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memDeliveries) all() []domain.EventDelivery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.EventDelivery(nil), r.deliveries...)
}

// backdate moves every recorded attempt into the past.
func (r *memDeliveries) backdate(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.deliveries {
		r.deliveries[i].DeliveredAt = r.deliveries[i].DeliveredAt.Add(-d)
	}
}

// --- Audit ---

type memAudit struct {
	mu   sync.Mutex
	logs []domain.AuditLog
}

func (r *memAudit) Create(_ context.Context, l *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *l)
	return nil
}

func (r *memAudit) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

// --- Transactor ---

// memTransactor serialises transactions with one lock, which gives the
// in-memory stores the isolation a committed PostgreSQL transaction would.
type memTransactor struct {
	mu sync.Mutex
}

func (t *memTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: t.mu.Unlock}, nil
}

type memTx struct {
	once    sync.Once
	release func()
}

func (t *memTx) end() error {
	t.once.Do(t.release)
	return nil
}

func (t *memTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(context.Context) error          { return t.end() }
func (t *memTx) Rollback(context.Context) error        { return t.end() }
func (t *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                        { return pgx.LargeObjects{} }
func (t *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *memTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *memTx) Conn() *pgx.Conn                                         { return nil }
