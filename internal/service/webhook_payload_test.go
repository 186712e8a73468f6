package service

import (
	"encoding/json"
	"testing"
	"time"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPaymentPayload_Completed(t *testing.T) {
	sig := "5sigabc"
	slot := int64(250_000_000)
	confirmedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	payment := &domain.Payment{
		ID:                   uuid.New(),
		Amount:               19_990_000,
		Status:               domain.PaymentStatusConfirmed,
		TransactionSignature: &sig,
		BlockNumber:          &slot,
		ConfirmedAt:          &confirmedAt,
	}
	event := &domain.Event{
		ID:        uuid.New(),
		PaymentID: payment.ID,
		SessionID: "sess-1",
		Type:      domain.EventTypePaymentCompleted,
		Metadata: map[string]any{
			domain.MetaMerchant:      map[string]any{"orderId": "A-1"},
			domain.MetaNetwork:       "devnet",
			domain.MetaToken:         "USDC",
			domain.MetaTokenMint:     devnetUSDC,
			domain.MetaWalletAddress: testPayer,
		},
	}
	products := []domain.Product{{Name: "Pro", Price: 19_990_000}}

	payload := BuildPaymentPayload(event, payment, products, confirmedAt)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, event.ID.String(), decoded["id"])
	assert.Equal(t, "payment.completed", decoded["type"])

	data := decoded["data"].(map[string]any)
	assert.Equal(t, 19.99, data["amount"])
	assert.Equal(t, "USDC", data["currency"])
	assert.Equal(t, "devnet", data["network"])
	assert.Equal(t, "CONFIRMED", data["status"])
	assert.Equal(t, sig, data["transactionSignature"])
	assert.Equal(t, float64(slot), data["blockNumber"])
	assert.Equal(t, "2026-03-01T12:00:00Z", data["confirmedAt"])
	assert.Equal(t, map[string]any{"orderId": "A-1"}, data["metadata"])
	assert.Len(t, data["products"], 1)
}

func TestBuildPaymentPayload_DefaultsForNewSession(t *testing.T) {
	payment := &domain.Payment{ID: uuid.New(), Amount: 5_000_000, Status: domain.PaymentStatusPending}
	event := &domain.Event{ID: uuid.New(), SessionID: "s", Type: domain.EventTypePayment}

	payload := BuildPaymentPayload(event, payment, nil, time.Now())
	assert.Equal(t, "payment.created", payload.Type)
	assert.Equal(t, "USDC", payload.Data.Currency)
	assert.NotNil(t, payload.Data.Metadata)
	assert.NotNil(t, payload.Data.Products)
	assert.Empty(t, payload.Data.TransactionSignature)
}
