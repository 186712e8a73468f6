package handler

import (
	"time"

	"crypto-checkout-gateway/internal/adapter/http/dto"
	"crypto-checkout-gateway/internal/adapter/http/middleware"
	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/pkg/apperror"
	"crypto-checkout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConsoleHandler handles the project console's webhook management endpoints.
type ConsoleHandler struct {
	endpointSvc ports.EndpointService
}

// NewConsoleHandler creates a new console handler.
func NewConsoleHandler(endpointSvc ports.EndpointService) *ConsoleHandler {
	return &ConsoleHandler{endpointSvc: endpointSvc}
}

// CreateEndpoint registers a webhook endpoint. The signing secret is only
// returned here and on rotation.
func (h *ConsoleHandler) CreateEndpoint(c *gin.Context) {
	projectID, ok := middleware.ProjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	// Only the free text is escaped; the URL must reach the service verbatim.
	dto.SanitizeStruct(&struct{ Description *string }{req.Description})

	created, err := h.endpointSvc.Create(c.Request.Context(), ports.CreateEndpointRequest{
		ProjectID:   projectID,
		URL:         req.URL,
		EventTypes:  req.EventTypes,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, created.Endpoint.ID.String())
	resp := toEndpointResponse(created.Endpoint)
	resp.Secret = created.Secret
	response.Created(c, resp)
}

// ListEndpoints returns the project's webhook endpoints.
func (h *ConsoleHandler) ListEndpoints(c *gin.Context) {
	projectID, ok := middleware.ProjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	endpoints, err := h.endpointSvc.List(c.Request.Context(), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.EndpointResponse, 0, len(endpoints))
	for i := range endpoints {
		out = append(out, toEndpointResponse(&endpoints[i]))
	}
	response.OK(c, out)
}

// UpdateEndpoint pauses, resumes or revokes an endpoint.
func (h *ConsoleHandler) UpdateEndpoint(c *gin.Context) {
	projectID, ok := middleware.ProjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Webhook endpoint"))
		return
	}

	var req dto.UpdateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	endpoint, err := h.endpointSvc.UpdateStatus(c.Request.Context(), projectID, endpointID, domain.EndpointStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEndpointResponse(endpoint))
}

// RotateSecret replaces an endpoint's signing secret.
func (h *ConsoleHandler) RotateSecret(c *gin.Context) {
	projectID, ok := middleware.ProjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Webhook endpoint"))
		return
	}

	secret, err := h.endpointSvc.RotateSecret(c.Request.Context(), projectID, endpointID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RotateSecretResponse{Secret: secret})
}

// ListDeliveries returns every delivery attempt for one of the project's events.
func (h *ConsoleHandler) ListDeliveries(c *gin.Context) {
	projectID, ok := middleware.ProjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Event"))
		return
	}

	deliveries, err := h.endpointSvc.ListDeliveries(c.Request.Context(), projectID, eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, dto.DeliveryResponse{
			ID:           d.ID.String(),
			EndpointID:   d.EndpointID.String(),
			EventType:    d.EventType,
			Attempt:      d.Attempt,
			Status:       string(d.Status),
			HTTPStatus:   d.HTTPStatus,
			ResponseBody: d.ResponseBody,
			ErrorMessage: d.ErrorMessage,
			DeliveredAt:  d.DeliveredAt.UTC().Format(time.RFC3339),
		})
	}
	response.OK(c, out)
}

func toEndpointResponse(e *domain.WebhookEndpoint) dto.EndpointResponse {
	resp := dto.EndpointResponse{
		ID:          e.ID.String(),
		URL:         e.URL,
		Status:      string(e.Status),
		EventTypes:  e.EventTypes,
		Description: e.Description,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if resp.EventTypes == nil {
		resp.EventTypes = []string{}
	}
	if e.LastHitAt != nil {
		s := e.LastHitAt.UTC().Format(time.RFC3339)
		resp.LastHitAt = &s
	}
	return resp
}
