// Package apperror defines the client-facing error codes of the gateway and
// the HTTP status each maps to.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. The prefix names the area: AUTH for credentials, PAY for
// session state, CHAIN for Solana access, RATE for throttling and request size, SYS for
// infrastructure.
const (
	CodeInvalidCredential = "AUTH_001"
	CodeInvalidToken      = "AUTH_003"
	CodeForbidden         = "AUTH_005"

	CodeInvalidRequest = "PAY_002"
	CodeNotFound       = "PAY_004"
	CodeSessionExpired = "PAY_008"
	CodeSessionClosed  = "PAY_009"

	CodeNoSourceAccount     = "CHAIN_001"
	CodeInsufficientBalance = "CHAIN_002"
	CodeMintResolution      = "CHAIN_003"
	CodeChainUnavailable    = "CHAIN_004"
	CodeInvalidAddress      = "CHAIN_005"

	CodeRateLimited  = "RATE_001"
	CodeBodyTooLarge = "RATE_002"

	CodeInternal   = "SYS_001"
	CodeEncryption = "SYS_003"
)

// AppError is an error with a stable code, a message safe to show the caller,
// and the HTTP status it is rendered with. Err carries the internal cause and
// is never serialized.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so
// errors.Is(err, apperror.ErrSessionExpired()) works through wrapping.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an AppError without a cause.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates an AppError around an internal cause.
func Wrap(code, message string, httpStatus int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func ErrInvalidCredential() *AppError {
	return New(CodeInvalidCredential, "Invalid API key", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New(CodeForbidden, "Forbidden", http.StatusForbidden)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidRequest, "Invalid amount", http.StatusBadRequest)
}

// Validation reports a malformed request under the PAY_002 code.
func Validation(message string) *AppError {
	return New(CodeInvalidRequest, message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, entity+" not found", http.StatusNotFound)
}

func ErrSessionExpired() *AppError {
	return New(CodeSessionExpired, "Payment session has expired", http.StatusGone)
}

// ErrSessionClosed reports a session that already left PENDING.
func ErrSessionClosed(status string) *AppError {
	return New(CodeSessionClosed, "Payment session is "+status, http.StatusConflict)
}

func ErrNoSourceAccount(token string) *AppError {
	return New(CodeNoSourceAccount, fmt.Sprintf("Payer has no %s token account", token), http.StatusBadRequest)
}

// ErrInsufficientBalance names both amounts in display units.
func ErrInsufficientBalance(token, required, current string) *AppError {
	return New(CodeInsufficientBalance,
		fmt.Sprintf("Insufficient balance: required %s %s, current %s %s", required, token, current, token),
		http.StatusPaymentRequired)
}

func ErrMintResolution(token, network string) *AppError {
	return New(CodeMintResolution, fmt.Sprintf("Token %s is not supported on %s", token, network), http.StatusBadRequest)
}

func ErrChainUnavailable(err error) *AppError {
	return Wrap(CodeChainUnavailable, "Chain RPC request failed", http.StatusBadGateway, err)
}

func ErrInvalidAddress(field string) *AppError {
	return New(CodeInvalidAddress, fmt.Sprintf("Invalid %s address", field), http.StatusBadRequest)
}

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

func ErrBodyTooLarge() *AppError {
	return New(CodeBodyTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap(CodeEncryption, "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError hides err behind a generic SYS_001 message.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
