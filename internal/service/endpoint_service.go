package service

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/pkg/apperror"

	"github.com/google/uuid"
)

var knownWebhookEvents = []string{
	domain.WebhookEventPaymentCreated,
	domain.WebhookEventPaymentCompleted,
	domain.WebhookEventPaymentFailed,
	domain.WebhookEventPaymentPending,
}

type endpointService struct {
	endpointRepo ports.WebhookEndpointRepository
	deliveryRepo ports.EventDeliveryRepository
	eventRepo    ports.EventRepository
	encSvc       ports.EncryptionService
}

// NewEndpointService creates the console service for webhook endpoints.
func NewEndpointService(
	endpointRepo ports.WebhookEndpointRepository,
	deliveryRepo ports.EventDeliveryRepository,
	eventRepo ports.EventRepository,
	encSvc ports.EncryptionService,
) ports.EndpointService {
	return &endpointService{
		endpointRepo: endpointRepo,
		deliveryRepo: deliveryRepo,
		eventRepo:    eventRepo,
		encSvc:       encSvc,
	}
}

func (s *endpointService) Create(ctx context.Context, req ports.CreateEndpointRequest) (*ports.CreatedEndpoint, error) {
	if err := validateEndpointURL(req.URL); err != nil {
		return nil, err
	}
	for _, et := range req.EventTypes {
		if !slices.Contains(knownWebhookEvents, et) {
			return nil, apperror.Validation(fmt.Sprintf("unknown event type %q", et))
		}
	}

	secret, secretEnc, err := s.newSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	eventTypes := req.EventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}
	endpoint := &domain.WebhookEndpoint{
		ID:          uuid.New(),
		ProjectID:   req.ProjectID,
		URL:         req.URL,
		SecretEnc:   secretEnc,
		Status:      domain.EndpointStatusActive,
		EventTypes:  eventTypes,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.endpointRepo.Create(ctx, endpoint); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	return &ports.CreatedEndpoint{Endpoint: endpoint, Secret: secret}, nil
}

func (s *endpointService) List(ctx context.Context, projectID uuid.UUID) ([]domain.WebhookEndpoint, error) {
	endpoints, err := s.endpointRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return endpoints, nil
}

// UpdateStatus pauses, resumes or revokes an endpoint. Revocation is final.
func (s *endpointService) UpdateStatus(ctx context.Context, projectID, endpointID uuid.UUID, status domain.EndpointStatus) (*domain.WebhookEndpoint, error) {
	switch status {
	case domain.EndpointStatusActive, domain.EndpointStatusPaused, domain.EndpointStatusRevoked:
	default:
		return nil, apperror.Validation(fmt.Sprintf("invalid status %q", status))
	}

	endpoint, err := s.owned(ctx, projectID, endpointID)
	if err != nil {
		return nil, err
	}
	if endpoint.Status == domain.EndpointStatusRevoked && status != domain.EndpointStatusRevoked {
		return nil, apperror.Validation("revoked endpoints cannot be reactivated")
	}

	if err := s.endpointRepo.UpdateStatus(ctx, endpointID, status); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	endpoint.Status = status
	endpoint.UpdatedAt = time.Now().UTC()
	return endpoint, nil
}

// RotateSecret replaces the signing secret and returns the new one in clear.
func (s *endpointService) RotateSecret(ctx context.Context, projectID, endpointID uuid.UUID) (string, error) {
	endpoint, err := s.owned(ctx, projectID, endpointID)
	if err != nil {
		return "", err
	}
	if endpoint.Status == domain.EndpointStatusRevoked {
		return "", apperror.Validation("revoked endpoints cannot be rotated")
	}

	secret, secretEnc, err := s.newSecret()
	if err != nil {
		return "", err
	}
	if err := s.endpointRepo.UpdateSecret(ctx, endpointID, secretEnc); err != nil {
		return "", apperror.ErrDatabaseError(err)
	}
	return secret, nil
}

// ListDeliveries returns every attempt recorded for one of the project's events.
func (s *endpointService) ListDeliveries(ctx context.Context, projectID, eventID uuid.UUID) ([]domain.EventDelivery, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if event == nil || event.ProjectID != projectID {
		return nil, apperror.ErrNotFound("Event")
	}

	deliveries, err := s.deliveryRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return deliveries, nil
}

func (s *endpointService) owned(ctx context.Context, projectID, endpointID uuid.UUID) (*domain.WebhookEndpoint, error) {
	endpoint, err := s.endpointRepo.GetByID(ctx, endpointID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if endpoint == nil || endpoint.ProjectID != projectID {
		return nil, apperror.ErrNotFound("Webhook endpoint")
	}
	return endpoint, nil
}

func (s *endpointService) newSecret() (string, string, error) {
	secret, err := generateKey(webhookSecretPrefix, 32)
	if err != nil {
		return "", "", apperror.InternalError(fmt.Errorf("generate secret: %w", err))
	}
	enc, err := s.encSvc.Encrypt(secret)
	if err != nil {
		return "", "", apperror.ErrEncryptionFailure(fmt.Errorf("encrypt secret: %w", err))
	}
	return secret, enc, nil
}

func validateEndpointURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperror.Validation("url must be an absolute http or https URL")
	}
	return nil
}
