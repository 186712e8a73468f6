package dto

import (
	"bytes"
	"encoding/json"

	"crypto-checkout-gateway/internal/core/ports"
)

// ProductRequest is one line item in a create-session body.
type ProductRequest struct {
	Name     string         `json:"name" binding:"required,max=200"`
	Price    float64        `json:"price"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateSessionRequest is the request body for POST /api/v1/sessions.
// An empty product list is rejected by the session service with PAY_002.
type CreateSessionRequest struct {
	Products []ProductRequest `json:"products" binding:"dive"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// ToPorts converts the body into service input.
func (r CreateSessionRequest) ToPorts(apiKey, idempotencyKey string) ports.CreateSessionRequest {
	products := make([]ports.ProductInput, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, ports.ProductInput{Name: p.Name, Price: p.Price, Metadata: p.Metadata})
	}
	return ports.CreateSessionRequest{
		APIKey:         apiKey,
		Products:       products,
		Metadata:       r.Metadata,
		IdempotencyKey: idempotencyKey,
	}
}

// SessionResponse is the public checkout view of a session.
type SessionResponse struct {
	SessionID            string            `json:"sessionId"`
	PaymentID            string            `json:"paymentId"`
	Status               string            `json:"status"`
	Amount               json.Number       `json:"amount"`
	Recipient            string            `json:"recipient"`
	Network              string            `json:"network"`
	Tokens               []string          `json:"tokens"`
	Products             []ProductResponse `json:"products"`
	TransactionSignature *string           `json:"transactionSignature,omitempty"`
	CreatedAt            string            `json:"createdAt"`
	ExpiresAt            string            `json:"expiresAt"`
}

// ProductResponse is a line item in the session view.
type ProductResponse struct {
	Name     string         `json:"name"`
	Price    json.Number    `json:"price"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BuildTransactionRequest is the checkout client's request for an unsigned transaction.
type BuildTransactionRequest struct {
	Account string `json:"account" binding:"required,max=64"`
	Token   string `json:"token" binding:"omitempty,token_symbol"`
}

// BuildTransactionResponse carries the unsigned transaction for the wallet to sign.
type BuildTransactionResponse struct {
	Transaction          string `json:"transaction"`
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	Network              string `json:"network"`
	Token                string `json:"token"`
	Mint                 string `json:"mint"`
	Amount               uint64 `json:"amount"` // raw token units
	Decimals             uint8  `json:"decimals"`
}

// ChainTransaction is one enhanced transaction in an indexer callback batch.
type ChainTransaction struct {
	Signature        string               `json:"signature"`
	Slot             int64                `json:"slot"`
	Timestamp        int64                `json:"timestamp"`
	TransactionError json.RawMessage      `json:"transactionError,omitempty"`
	TokenTransfers   []ChainTokenTransfer `json:"tokenTransfers"`
	Instructions     []ChainInstruction   `json:"instructions"`
}

// ChainTokenTransfer is a single SPL transfer as reported by the indexer.
type ChainTokenTransfer struct {
	FromUserAccount  string  `json:"fromUserAccount"`
	ToUserAccount    string  `json:"toUserAccount"`
	FromTokenAccount string  `json:"fromTokenAccount"`
	ToTokenAccount   string  `json:"toTokenAccount"`
	Mint             string  `json:"mint"`
	TokenAmount      float64 `json:"tokenAmount"`
}

// ChainInstruction is a top-level instruction with its encoded data.
type ChainInstruction struct {
	ProgramID string   `json:"programId"`
	Data      string   `json:"data"`
	Accounts  []string `json:"accounts"`
}

// Failed reports whether the indexer flagged the transaction with an error.
func (t ChainTransaction) Failed() bool {
	trimmed := bytes.TrimSpace(t.TransactionError)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ToChainTransactions converts a callback batch into ingester input.
func ToChainTransactions(batch []ChainTransaction) []ports.ChainTransaction {
	out := make([]ports.ChainTransaction, 0, len(batch))
	for _, t := range batch {
		ct := ports.ChainTransaction{
			Signature:      t.Signature,
			Slot:           t.Slot,
			Timestamp:      t.Timestamp,
			Failed:         t.Failed(),
			TokenTransfers: make([]ports.TokenTransfer, 0, len(t.TokenTransfers)),
			Instructions:   make([]ports.ChainInstruction, 0, len(t.Instructions)),
		}
		for _, tt := range t.TokenTransfers {
			ct.TokenTransfers = append(ct.TokenTransfers, ports.TokenTransfer(tt))
		}
		for _, ix := range t.Instructions {
			ct.Instructions = append(ct.Instructions, ports.ChainInstruction(ix))
		}
		out = append(out, ct)
	}
	return out
}

// AckResponse is the fixed body returned to the indexer.
type AckResponse struct {
	Msg string `json:"msg"`
}

// CreateEndpointRequest is the request body for registering a webhook endpoint.
type CreateEndpointRequest struct {
	URL         string   `json:"url" binding:"required,max=2048,safe_url"`
	EventTypes  []string `json:"event_types" binding:"omitempty,dive,webhook_event"`
	Description *string  `json:"description,omitempty" binding:"omitempty,max=500"`
}

// UpdateEndpointRequest changes an endpoint's status.
type UpdateEndpointRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE PAUSED REVOKED"`
}

// EndpointResponse is a webhook endpoint as shown in the console. Secret is
// set only on creation and rotation.
type EndpointResponse struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Status      string   `json:"status"`
	EventTypes  []string `json:"event_types"`
	Description *string  `json:"description,omitempty"`
	Secret      string   `json:"secret,omitempty"`
	LastHitAt   *string  `json:"last_hit_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// RotateSecretResponse returns the new signing secret once.
type RotateSecretResponse struct {
	Secret string `json:"secret"`
}

// DeliveryResponse is one recorded delivery attempt.
type DeliveryResponse struct {
	ID           string  `json:"id"`
	EndpointID   string  `json:"endpoint_id"`
	EventType    string  `json:"event_type"`
	Attempt      int     `json:"attempt"`
	Status       string  `json:"status"`
	HTTPStatus   *int    `json:"http_status,omitempty"`
	ResponseBody *string `json:"response_body,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	DeliveredAt  string  `json:"delivered_at"`
}
