package handler

import (
	"crypto-checkout-gateway/internal/adapter/http/middleware"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Body caps. Indexer batches carry full parsed transactions, merchant and
// console requests are small.
const (
	maxAPIBody   = 64 << 10
	maxChainBody = 8 << 20
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SessionSvc       ports.SessionService
	Builder          ports.TransactionBuilder
	Ingester         ports.ChainIngester
	EndpointSvc      ports.EndpointService
	TokenSvc         ports.TokenService
	AuditSvc         ports.AuditService         // nil = audit logging disabled
	RateLimitStore   middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	IngestAuthHeader string
	IngestSecret     string
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Merchant API (API key) and public checkout ---
	sessionHandler := NewSessionHandler(deps.SessionSvc, deps.Builder)
	sessions := v1.Group("/sessions", middleware.BodyLimit(maxAPIBody))
	{
		sessions.POST("", rl(middleware.GroupSessionCreate), sessionHandler.Create)
		sessions.GET("/:sessionId", rl(middleware.GroupSessionRead), sessionHandler.Get)
		sessions.POST("/:sessionId/transaction", rl(middleware.GroupTransaction), sessionHandler.BuildTransaction)
	}

	// --- Indexer callback (shared secret) ---
	chainHandler := NewChainWebhookHandler(deps.Ingester)
	v1.POST("/webhooks/chain",
		rl(middleware.GroupChainWebhook),
		middleware.BodyLimit(maxChainBody),
		middleware.SharedSecret(deps.IngestAuthHeader, deps.IngestSecret, deps.Logger),
		chainHandler.Receive,
	)

	// --- Project console (JWT) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	consoleHandler := NewConsoleHandler(deps.EndpointSvc)
	console := v1.Group("/console", jwtAuth, rl(middleware.GroupConsole), middleware.BodyLimit(maxAPIBody))
	{
		console.GET("/webhooks", consoleHandler.ListEndpoints)
		console.POST("/webhooks", consoleHandler.CreateEndpoint)
		console.PATCH("/webhooks/:id", consoleHandler.UpdateEndpoint)
		console.POST("/webhooks/:id/rotate-secret", consoleHandler.RotateSecret)
		console.GET("/events/:eventId/deliveries", consoleHandler.ListDeliveries)
	}

	return r
}
