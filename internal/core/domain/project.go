package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project is the merchant-side owner of API tokens, payments and endpoints.
// Projects are managed elsewhere; the gateway only reads them.
type Project struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"wallet_address"` // owner of the receiving token accounts
	CreatedAt     time.Time `json:"created_at"`
}
