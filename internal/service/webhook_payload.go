package service

import (
	"encoding/json"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
)

// WebhookPayload is the JSON body posted to merchant endpoints.
type WebhookPayload struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	CreatedAt string             `json:"createdAt"`
	Data      WebhookPaymentData `json:"data"`
}

// WebhookPaymentData describes the payment the event is about.
type WebhookPaymentData struct {
	SessionID            string           `json:"sessionId"`
	PaymentID            string           `json:"paymentId"`
	Amount               json.Number      `json:"amount"`
	Currency             string           `json:"currency"`
	Network              string           `json:"network,omitempty"`
	Status               string           `json:"status"`
	Metadata             map[string]any   `json:"metadata"`
	WalletAddress        string           `json:"walletAddress,omitempty"`
	TokenMint            string           `json:"tokenMint,omitempty"`
	TransactionSignature string           `json:"transactionSignature,omitempty"`
	BlockNumber          *int64           `json:"blockNumber,omitempty"`
	ConfirmedAt          string           `json:"confirmedAt,omitempty"`
	FailureReason        string           `json:"failureReason,omitempty"`
	Products             []WebhookProduct `json:"products"`
}

// WebhookProduct is a line item as echoed back to the merchant.
type WebhookProduct struct {
	Name     string         `json:"name"`
	Price    json.Number    `json:"price"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BuildPaymentPayload renders the webhook body from the stored payment state.
// The event must already carry the type and metadata of the transition.
func BuildPaymentPayload(event *domain.Event, payment *domain.Payment, products []domain.Product, now time.Time) WebhookPayload {
	currency := event.MetaString(domain.MetaToken)
	if currency == "" {
		currency = string(domain.TokenUSDC)
	}

	data := WebhookPaymentData{
		SessionID:     event.SessionID,
		PaymentID:     payment.ID.String(),
		Amount:        json.Number(domain.FormatMicroUnits(payment.Amount)),
		Currency:      currency,
		Network:       event.MetaString(domain.MetaNetwork),
		Status:        string(payment.Status),
		Metadata:      event.MerchantMetadata(),
		WalletAddress: event.MetaString(domain.MetaWalletAddress),
		TokenMint:     event.MetaString(domain.MetaTokenMint),
		FailureReason: event.MetaString(domain.MetaFailureReason),
		BlockNumber:   payment.BlockNumber,
		Products:      make([]WebhookProduct, 0, len(products)),
	}
	if data.Metadata == nil {
		data.Metadata = map[string]any{}
	}
	if payment.TransactionSignature != nil {
		data.TransactionSignature = *payment.TransactionSignature
	}
	if payment.ConfirmedAt != nil {
		data.ConfirmedAt = payment.ConfirmedAt.UTC().Format(time.RFC3339)
	}
	for _, p := range products {
		data.Products = append(data.Products, WebhookProduct{
			Name:     p.Name,
			Price:    json.Number(domain.FormatMicroUnits(p.Price)),
			Metadata: p.Metadata,
		})
	}

	return WebhookPayload{
		ID:        event.ID.String(),
		Type:      event.Type.WebhookName(),
		CreatedAt: now.UTC().Format(time.RFC3339),
		Data:      data,
	}
}
