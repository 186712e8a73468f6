// Package response writes the gateway's JSON envelopes.
package response

import (
	"errors"
	"net/http"
	"time"

	"crypto-checkout-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Internal is the code and message reported for errors that are not AppErrors.
const (
	InternalCode    = "SYS_000"
	InternalMessage = "Internal server error"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// SessionResponse is the checkout session envelope. Exactly one field is
// non-null: the session id on success, the message on failure.
type SessionResponse struct {
	SessionID *string `json:"sessionId"`
	Error     *string `json:"error"`
}

// OK sends a 200 envelope with data.
func OK(c *gin.Context, data any) {
	envelope(c, http.StatusOK, data)
}

// Created sends a 201 envelope with data.
func Created(c *gin.Context, data any) {
	envelope(c, http.StatusCreated, data)
}

// Error sends the error envelope for err.
func Error(c *gin.Context, err error) {
	status, code, msg := Describe(err)
	c.JSON(status, ErrorResponse{
		ErrorCode: code,
		Message:   msg,
		RequestID: RequestID(c),
		Timestamp: now(),
	})
}

// Session sends a session envelope carrying sessionID.
func Session(c *gin.Context, status int, sessionID string) {
	c.JSON(status, SessionResponse{SessionID: &sessionID})
}

// SessionError sends a session envelope carrying the message of err.
func SessionError(c *gin.Context, err error) {
	status, _, msg := Describe(err)
	c.JSON(status, SessionResponse{Error: &msg})
}

// Describe maps err to an HTTP status, error code and client-safe message.
// Anything that is not an *apperror.AppError becomes a 500 with a fixed message.
func Describe(err error) (int, string, string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, InternalCode, InternalMessage
}

// RequestID returns the id the request-id middleware stored, or a fresh one.
func RequestID(c *gin.Context) string {
	if s := c.GetString(RequestIDKey); s != "" {
		return s
	}
	return uuid.New().String()
}

func envelope(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: RequestID(c),
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
