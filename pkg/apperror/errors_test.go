package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "[PAY_002] Invalid amount", ErrInvalidAmount().Error())
	assert.Equal(t, "[SYS_001] Internal database error: connection refused",
		ErrDatabaseError(fmt.Errorf("connection refused")).Error())
}

func TestAppError_Chain(t *testing.T) {
	inner := fmt.Errorf("dial tcp: timeout")
	err := fmt.Errorf("building transaction: %w", ErrChainUnavailable(inner))

	assert.ErrorIs(t, err, inner)
	assert.ErrorIs(t, err, ErrChainUnavailable(nil), "matched by code")
	assert.NotErrorIs(t, err, ErrSessionExpired())
	assert.Equal(t, CodeChainUnavailable, CodeOf(err))
	assert.Empty(t, CodeOf(errors.New("plain")))
	assert.Nil(t, ErrForbidden().Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ErrInvalidCredential(), "AUTH_001", http.StatusUnauthorized},
		{ErrInvalidToken(), "AUTH_003", http.StatusUnauthorized},
		{ErrForbidden(), "AUTH_005", http.StatusForbidden},
		{ErrInvalidAmount(), "PAY_002", http.StatusBadRequest},
		{Validation("products is required"), "PAY_002", http.StatusBadRequest},
		{ErrNotFound("Session"), "PAY_004", http.StatusNotFound},
		{ErrSessionExpired(), "PAY_008", http.StatusGone},
		{ErrSessionClosed("CONFIRMED"), "PAY_009", http.StatusConflict},
		{ErrNoSourceAccount("USDC"), "CHAIN_001", http.StatusBadRequest},
		{ErrInsufficientBalance("USDC", "19.99", "5"), "CHAIN_002", http.StatusPaymentRequired},
		{ErrMintResolution("USDT", "devnet"), "CHAIN_003", http.StatusBadRequest},
		{ErrChainUnavailable(nil), "CHAIN_004", http.StatusBadGateway},
		{ErrInvalidAddress("payer"), "CHAIN_005", http.StatusBadRequest},
		{ErrRateLimitExceeded(), "RATE_001", http.StatusTooManyRequests},
		{ErrBodyTooLarge(), "RATE_002", http.StatusRequestEntityTooLarge},
		{ErrDatabaseError(nil), "SYS_001", http.StatusInternalServerError},
		{ErrEncryptionFailure(nil), "SYS_003", http.StatusInternalServerError},
		{InternalError(nil), "SYS_001", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code+" "+tt.err.Message, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Insufficient balance: required 19.99 USDC, current 5 USDC",
		ErrInsufficientBalance("USDC", "19.99", "5").Message)
	assert.Equal(t, "Session not found", ErrNotFound("Session").Message)
	assert.Equal(t, "Payment session is FAILED", ErrSessionClosed("FAILED").Message)
	assert.Equal(t, "Token USDT is not supported on devnet", ErrMintResolution("USDT", "devnet").Message)
}
