package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"crypto-checkout-gateway/internal/adapter/http/dto"
	"crypto-checkout-gateway/internal/adapter/http/middleware"
	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/pkg/apperror"
	"crypto-checkout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderReplayed marks a create-session response served from an earlier request.
const HeaderReplayed = "Idempotent-Replayed"

const maxIdempotencyKeyLength = 255

// SessionHandler serves the merchant and checkout session endpoints.
type SessionHandler struct {
	sessionSvc ports.SessionService
	builder    ports.TransactionBuilder
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionSvc ports.SessionService, builder ports.TransactionBuilder) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, builder: builder}
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SessionError(c, apperror.Validation(err.Error()))
		return
	}

	idemKey := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	if len(idemKey) > maxIdempotencyKeyLength {
		response.SessionError(c, apperror.Validation("Idempotency-Key must be at most 255 characters"))
		return
	}

	apiKey := strings.TrimSpace(c.GetHeader(middleware.HeaderAPIKey))
	result, err := h.sessionSvc.CreateSession(c.Request.Context(), req.ToPorts(apiKey, idemKey))
	if err != nil {
		response.SessionError(c, err)
		return
	}

	c.Set(middleware.CtxProjectID, result.ProjectID)
	c.Set(middleware.CtxResourceID, result.PaymentID.String())

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
		c.Header(HeaderReplayed, "true")
	}
	response.Session(c, status, result.SessionID)
}

// Get handles GET /api/v1/sessions/:sessionId.
func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.sessionSvc.GetSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSessionResponse(view))
}

// BuildTransaction handles POST /api/v1/sessions/:sessionId/transaction.
// Success is a flat object so wallet adapters can read it directly.
func (h *SessionHandler) BuildTransaction(c *gin.Context) {
	var req dto.BuildTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	built, err := h.builder.Build(c.Request.Context(), ports.BuildTransactionRequest{
		SessionID:    c.Param("sessionId"),
		PayerAddress: req.Account,
		Token:        domain.ParseTokenSymbol(req.Token),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BuildTransactionResponse{
		Transaction:          built.Transaction,
		Blockhash:            built.Blockhash,
		LastValidBlockHeight: built.LastValidBlockHeight,
		Network:              string(built.Network),
		Token:                built.Memo.Token,
		Mint:                 built.Mint,
		Amount:               built.RawAmount,
		Decimals:             built.Decimals,
	})
}

func toSessionResponse(v *ports.SessionView) dto.SessionResponse {
	tokens := make([]string, 0, len(v.Tokens))
	for _, t := range v.Tokens {
		tokens = append(tokens, string(t))
	}
	products := make([]dto.ProductResponse, 0, len(v.Products))
	for _, p := range v.Products {
		products = append(products, dto.ProductResponse{
			Name:     p.Name,
			Price:    json.Number(domain.FormatMicroUnits(p.Price)),
			Metadata: p.Metadata,
		})
	}
	return dto.SessionResponse{
		SessionID:            v.SessionID,
		PaymentID:            v.PaymentID.String(),
		Status:               string(v.Status),
		Amount:               json.Number(domain.FormatMicroUnits(v.Amount)),
		Recipient:            v.RecipientAddress,
		Network:              string(v.Network),
		Tokens:               tokens,
		Products:             products,
		TransactionSignature: v.TransactionSignature,
		CreatedAt:            v.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:            v.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
