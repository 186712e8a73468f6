package handler

import (
	"context"
	"net/http"

	"crypto-checkout-gateway/internal/adapter/http/dto"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/pkg/apperror"
	"crypto-checkout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChainWebhookHandler receives enhanced-transaction callbacks from the indexer.
type ChainWebhookHandler struct {
	ingester ports.ChainIngester
}

// NewChainWebhookHandler creates a new ChainWebhookHandler.
func NewChainWebhookHandler(ingester ports.ChainIngester) *ChainWebhookHandler {
	return &ChainWebhookHandler{ingester: ingester}
}

// Receive handles POST /api/v1/webhooks/chain.
//
// Per-transaction problems never surface to the indexer: once the body parses,
// the answer is always 200 {"msg":"OK"} so the batch is not retried forever.
// Processing is detached from the request so a dropped connection does not
// abandon a half-applied batch.
func (h *ChainWebhookHandler) Receive(c *gin.Context) {
	var batch []dto.ChainTransaction
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.Error(c, apperror.Validation("body must be a JSON array of transactions"))
		return
	}

	if len(batch) > 0 {
		ctx := context.WithoutCancel(c.Request.Context())
		h.ingester.Ingest(ctx, dto.ToChainTransactions(batch))
	}

	c.JSON(http.StatusOK, dto.AckResponse{Msg: "OK"})
}
