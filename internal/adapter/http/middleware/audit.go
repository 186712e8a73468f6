package middleware

import (
	"encoding/json"
	"net/http"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// AuditLog records successful write operations after the handler ran.
// Routes are matched on their registered pattern, not the raw path.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		resourceID := c.Param("id")
		if id := c.GetString(CtxResourceID); id != "" {
			resourceID = id
		}

		entry := domain.NewAuditLog(action, resourceType, resourceID)
		if id, ok := ProjectID(c); ok {
			entry.ForProject(id)
		}
		entry.IPAddress = c.ClientIP()
		details, _ := json.Marshal(map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(CtxRequestID),
		})
		entry.Details = string(details)

		auditSvc.Log(c.Request.Context(), entry)
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/sessions" && method == http.MethodPost:
		return domain.AuditActionCreateSession, "session"
	case route == "/api/v1/console/webhooks" && method == http.MethodPost:
		return domain.AuditActionCreateWebhook, "webhook_endpoint"
	case route == "/api/v1/console/webhooks/:id" && method == http.MethodPatch:
		return domain.AuditActionUpdateWebhook, "webhook_endpoint"
	case route == "/api/v1/console/webhooks/:id/rotate-secret" && method == http.MethodPost:
		return domain.AuditActionRotateWebhookSecret, "webhook_endpoint"
	}
	return "", ""
}
