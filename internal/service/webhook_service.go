package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// Webhook request headers.
const (
	HeaderWebhookSignature  = "X-Webhook-Signature"
	HeaderWebhookEventID    = "X-Webhook-Event-Id"
	HeaderWebhookEventType  = "X-Webhook-Event-Type"
	HeaderWebhookDeliveryID = "X-Webhook-Delivery-Id"
	HeaderWebhookAttempt    = "X-Webhook-Attempt"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookConfig bounds a single delivery attempt.
type WebhookConfig struct {
	Timeout         time.Duration
	MaxResponseBody int
	UserAgent       string
}

// DefaultWebhookConfig returns a 30s timeout and a 1 KiB stored response body.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:         30 * time.Second,
		MaxResponseBody: domain.MaxResponseBodyLength,
		UserAgent:       "crypto-checkout-gateway/1.0",
	}
}

// DeliveryError describes why an attempt did not reach a 2xx response.
type DeliveryError struct {
	Stage  string // secret, request, transport, status
	Status int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Stage == "status" {
		return fmt.Sprintf("endpoint responded with status %d", e.Status)
	}
	return fmt.Sprintf("webhook %s failed: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// webhookService implements ports.WebhookDeliverer.
type webhookService struct {
	endpointRepo ports.WebhookEndpointRepository
	deliveryRepo ports.EventDeliveryRepository
	encSvc       ports.EncryptionService
	sigSvc       ports.SignatureService
	httpClient   HTTPClient
	cfg          WebhookConfig
	now          func() time.Time
	log          zerolog.Logger
}

// NewWebhookService creates the webhook delivery engine.
func NewWebhookService(
	endpointRepo ports.WebhookEndpointRepository,
	deliveryRepo ports.EventDeliveryRepository,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	cfg WebhookConfig,
	log zerolog.Logger,
) ports.WebhookDeliverer {
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = domain.MaxResponseBodyLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWebhookConfig().Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultWebhookConfig().UserAgent
	}
	return &webhookService{
		endpointRepo: endpointRepo,
		deliveryRepo: deliveryRepo,
		encSvc:       encSvc,
		sigSvc:       sigSvc,
		httpClient:   httpClient,
		cfg:          cfg,
		now:          time.Now,
		log:          log,
	}
}

// Deliver posts the event to every active endpoint of the project that subscribes
// to it, concurrently, and waits for all of them. One EventDelivery row is written
// per endpoint whatever the outcome.
func (s *webhookService) Deliver(ctx context.Context, req ports.DeliveryRequest) {
	eventName := req.EventType.WebhookName()
	log := s.log.With().
		Str("event_id", req.EventID.String()).
		Str("event_type", eventName).
		Logger()

	endpoints, err := s.endpointRepo.ListActiveByProject(ctx, req.ProjectID)
	if err != nil {
		log.Error().Err(err).Msg("webhook: failed to list endpoints")
		return
	}

	body, err := json.Marshal(req.Payload)
	if err != nil {
		log.Error().Err(err).Msg("webhook: failed to marshal payload")
		return
	}

	var wg conc.WaitGroup
	for i := range endpoints {
		ep := &endpoints[i]
		if !ep.Subscribes(eventName) {
			continue
		}
		wg.Go(func() {
			s.attempt(ctx, ep, req.EventID, eventName, string(body), 1)
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		log.Error().Interface("panic", r.Value).Msg("webhook: delivery goroutine panicked")
	}
}

// Redeliver re-sends a previously attempted payload as the next attempt.
func (s *webhookService) Redeliver(ctx context.Context, previous *domain.EventDelivery, endpoint *domain.WebhookEndpoint) *domain.EventDelivery {
	return s.attempt(ctx, endpoint, previous.EventID, previous.EventType, previous.Payload, previous.Attempt+1)
}

func (s *webhookService) attempt(ctx context.Context, ep *domain.WebhookEndpoint, eventID uuid.UUID, eventName, body string, attempt int) *domain.EventDelivery {
	delivery := &domain.EventDelivery{
		ID:         uuid.New(),
		EventID:    eventID,
		EndpointID: ep.ID,
		EventType:  eventName,
		Payload:    body,
		Attempt:    attempt,
	}

	status, respBody, err := s.post(ctx, ep, delivery)
	delivery.DeliveredAt = s.now()

	// Detached so a cancelled caller still gets its attempts recorded.
	persistCtx := context.WithoutCancel(ctx)

	if status > 0 {
		delivery.HTTPStatus = &status
		delivery.ResponseBody = &respBody
		if err := s.endpointRepo.TouchLastHit(persistCtx, ep.ID, delivery.DeliveredAt); err != nil {
			s.log.Warn().Err(err).Str("endpoint_id", ep.ID.String()).Msg("webhook: failed to update last hit")
		}
	}

	if err == nil && status >= 200 && status < 300 {
		delivery.Status = domain.DeliveryStatusDelivered
	} else {
		if err == nil {
			err = &DeliveryError{Stage: "status", Status: status}
		}
		msg := err.Error()
		delivery.Status = domain.DeliveryStatusFailed
		delivery.ErrorMessage = &msg
	}

	if err := s.deliveryRepo.Create(persistCtx, delivery); err != nil {
		s.log.Error().Err(err).
			Str("event_id", eventID.String()).
			Str("endpoint_id", ep.ID.String()).
			Msg("webhook: failed to record delivery")
	}

	ev := s.log.Info()
	if !delivery.Succeeded() {
		ev = s.log.Warn()
	}
	ev.Str("event_id", eventID.String()).
		Str("endpoint_id", ep.ID.String()).
		Int("attempt", attempt).
		Str("status", string(delivery.Status)).
		Msg("webhook: attempt finished")

	return delivery
}

// post returns the HTTP status (0 when no response was received) and the
// truncated response body.
func (s *webhookService) post(ctx context.Context, ep *domain.WebhookEndpoint, d *domain.EventDelivery) (int, string, error) {
	secret, err := s.encSvc.Decrypt(ep.SecretEnc)
	if err != nil {
		return 0, "", &DeliveryError{Stage: "secret", Err: err}
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ep.URL, strings.NewReader(d.Payload))
	if err != nil {
		return 0, "", &DeliveryError{Stage: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set(HeaderWebhookSignature, s.sigSvc.SignatureHeader(secret, s.now().Unix(), d.Payload))
	req.Header.Set(HeaderWebhookEventID, d.EventID.String())
	req.Header.Set(HeaderWebhookEventType, d.EventType)
	req.Header.Set(HeaderWebhookDeliveryID, d.ID.String())
	req.Header.Set(HeaderWebhookAttempt, strconv.Itoa(d.Attempt))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", &DeliveryError{Stage: "transport", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, int64(s.cfg.MaxResponseBody)))
	if err != nil {
		s.log.Debug().Err(err).Str("endpoint_id", ep.ID.String()).Msg("webhook: reading response body")
	}
	return resp.StatusCode, strings.ToValidUTF8(string(raw), ""), nil
}
