package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	// SignatureHeader renders "t=<timestamp>,v1=<hex hmac of '<timestamp>.<body>'>".
	SignatureHeader(secretKey string, timestamp int64, body string) string
}

// HashService handles API token hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles JWT token operations for the project console.
type TokenService interface {
	Generate(projectID uuid.UUID, subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ProjectID uuid.UUID
	Subject   string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached value or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SignatureGuard remembers chain signatures that already confirmed a payment.
type SignatureGuard interface {
	Seen(ctx context.Context, signature string) (bool, error)
	Remember(ctx context.Context, signature string, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// SessionService creates and reads payment sessions.
type SessionService interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error)
	GetSession(ctx context.Context, sessionID string) (*SessionView, error)
}

// ProductInput is one line item as sent by the merchant.
type ProductInput struct {
	Name     string
	Price    float64
	Metadata map[string]any
}

// CreateSessionRequest holds validated input for session creation.
type CreateSessionRequest struct {
	APIKey         string
	Products       []ProductInput
	Metadata       map[string]any
	IdempotencyKey string // optional
}

// CreateSessionResult is returned for both new and replayed sessions.
type CreateSessionResult struct {
	SessionID string
	PaymentID uuid.UUID
	ProjectID uuid.UUID
	Replayed  bool
}

// SessionView is the public checkout view of a session.
type SessionView struct {
	SessionID            string
	PaymentID            uuid.UUID
	Status               domain.PaymentStatus
	Amount               int64
	RecipientAddress     string
	Network              domain.Network
	Tokens               []domain.TokenSymbol
	Products             []domain.Product
	TransactionSignature *string
	CreatedAt            time.Time
	ExpiresAt            time.Time
}

// TransactionBuilder assembles unsigned checkout transactions.
type TransactionBuilder interface {
	Build(ctx context.Context, req BuildTransactionRequest) (*BuiltTransaction, error)
}

// BuildTransactionRequest identifies the session, the paying wallet and the token.
type BuildTransactionRequest struct {
	SessionID    string
	PayerAddress string
	Token        domain.TokenSymbol
}

// BuiltTransaction is the serialised unsigned transaction plus its block reference.
type BuiltTransaction struct {
	Transaction          string // base64
	Blockhash            string
	LastValidBlockHeight uint64
	Network              domain.Network
	Mint                 string
	RawAmount            uint64
	Decimals             uint8
	Memo                 domain.Memo
}

// ChainIngester applies indexer callbacks to pending payments.
type ChainIngester interface {
	Ingest(ctx context.Context, txs []ChainTransaction) IngestSummary
}

// ChainTransaction is one enhanced transaction as reported by the indexer.
type ChainTransaction struct {
	Signature      string
	Slot           int64
	Timestamp      int64 // unix seconds
	Failed         bool
	TokenTransfers []TokenTransfer
	Instructions   []ChainInstruction
}

// TokenTransfer is a single SPL transfer inside a transaction.
type TokenTransfer struct {
	FromUserAccount  string
	ToUserAccount    string
	FromTokenAccount string
	ToTokenAccount   string
	Mint             string
	TokenAmount      float64
}

// ChainInstruction is a top-level instruction with its encoded data.
type ChainInstruction struct {
	ProgramID string
	Data      string
	Accounts  []string
}

// IngestSummary counts what happened to a batch.
type IngestSummary struct {
	Received  int
	Confirmed int
	Skipped   int
	Failed    int
}

// WebhookDeliverer fans events out to merchant endpoints. It never returns errors:
// every outcome is recorded as an EventDelivery.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, req DeliveryRequest)
	Redeliver(ctx context.Context, previous *domain.EventDelivery, endpoint *domain.WebhookEndpoint) *domain.EventDelivery
}

// DeliveryRequest describes one event to deliver to every subscribed endpoint.
type DeliveryRequest struct {
	EventID   uuid.UUID
	ProjectID uuid.UUID
	EventType domain.EventType
	Payload   any
}

// EndpointService manages a project's webhook endpoints from the console.
type EndpointService interface {
	Create(ctx context.Context, req CreateEndpointRequest) (*CreatedEndpoint, error)
	List(ctx context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error)
	UpdateStatus(ctx context.Context, projectID, endpointID uuid.UUID, status domain.EndpointStatus) (*domain.WebhookEndpoint, error)
	RotateSecret(ctx context.Context, projectID, endpointID uuid.UUID) (string, error)
	ListDeliveries(ctx context.Context, projectID, eventID uuid.UUID) ([]domain.EventDelivery, error)
}

// CreateEndpointRequest holds validated input for endpoint registration.
type CreateEndpointRequest struct {
	ProjectID   uuid.UUID
	URL         string
	EventTypes  []string
	Description *string
}

// CreatedEndpoint returns the signing secret in clear exactly once.
type CreatedEndpoint struct {
	Endpoint *domain.WebhookEndpoint
	Secret   string
}

// APITokenService issues API tokens.
type APITokenService interface {
	Issue(ctx context.Context, req IssueTokenRequest) (*IssuedToken, error)
}

// IssueTokenRequest holds input for token issuance.
type IssueTokenRequest struct {
	ProjectID   uuid.UUID
	Name        string
	Environment domain.Environment
}

// IssuedToken carries the plaintext key, shown only once.
type IssuedToken struct {
	Token  *domain.APIToken
	APIKey string
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
