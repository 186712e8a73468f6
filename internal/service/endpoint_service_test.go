package service

import (
	"context"
	"strings"
	"testing"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type endpointTestDeps struct {
	svc          ports.EndpointService
	endpointRepo *mocks.MockWebhookEndpointRepository
	deliveryRepo *mocks.MockEventDeliveryRepository
	eventRepo    *mocks.MockEventRepository
	encSvc       *AESEncryptionService
	projectID    uuid.UUID
}

func setupEndpointService(t *testing.T) *endpointTestDeps {
	ctrl := gomock.NewController(t)
	encSvc, err := NewAESEncryptionService(testAESHexKey)
	require.NoError(t, err)
	d := &endpointTestDeps{
		endpointRepo: mocks.NewMockWebhookEndpointRepository(ctrl),
		deliveryRepo: mocks.NewMockEventDeliveryRepository(ctrl),
		eventRepo:    mocks.NewMockEventRepository(ctrl),
		encSvc:       encSvc,
		projectID:    uuid.New(),
	}
	d.svc = NewEndpointService(d.endpointRepo, d.deliveryRepo, d.eventRepo, encSvc)
	return d
}

func TestEndpointService_Create(t *testing.T) {
	d := setupEndpointService(t)

	var stored *domain.WebhookEndpoint
	d.endpointRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ep *domain.WebhookEndpoint) error {
			stored = ep
			return nil
		})

	created, err := d.svc.Create(context.Background(), ports.CreateEndpointRequest{
		ProjectID:  d.projectID,
		URL:        "https://merchant.example.com/hooks",
		EventTypes: []string{domain.WebhookEventPaymentCompleted},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.Secret, "whsec_"))
	assert.Equal(t, domain.EndpointStatusActive, stored.Status)
	assert.NotContains(t, stored.SecretEnc, created.Secret)

	plain, err := d.encSvc.Decrypt(stored.SecretEnc)
	require.NoError(t, err)
	assert.Equal(t, created.Secret, plain)
}

func TestEndpointService_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  ports.CreateEndpointRequest
	}{
		{"relative url", ports.CreateEndpointRequest{URL: "/hooks"}},
		{"ftp url", ports.CreateEndpointRequest{URL: "ftp://example.com"}},
		{"unknown event", ports.CreateEndpointRequest{URL: "https://example.com", EventTypes: []string{"refund.created"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupEndpointService(t)
			_, err := d.svc.Create(context.Background(), tt.req)
			assertAppError(t, err, "PAY_002")
		})
	}
}

func TestEndpointService_UpdateStatus(t *testing.T) {
	d := setupEndpointService(t)
	ep := &domain.WebhookEndpoint{ID: uuid.New(), ProjectID: d.projectID, Status: domain.EndpointStatusActive}

	d.endpointRepo.EXPECT().GetByID(gomock.Any(), ep.ID).Return(ep, nil)
	d.endpointRepo.EXPECT().UpdateStatus(gomock.Any(), ep.ID, domain.EndpointStatusPaused).Return(nil)

	updated, err := d.svc.UpdateStatus(context.Background(), d.projectID, ep.ID, domain.EndpointStatusPaused)
	require.NoError(t, err)
	assert.Equal(t, domain.EndpointStatusPaused, updated.Status)
}

func TestEndpointService_UpdateStatus_RevokedIsFinal(t *testing.T) {
	d := setupEndpointService(t)
	ep := &domain.WebhookEndpoint{ID: uuid.New(), ProjectID: d.projectID, Status: domain.EndpointStatusRevoked}
	d.endpointRepo.EXPECT().GetByID(gomock.Any(), ep.ID).Return(ep, nil)

	_, err := d.svc.UpdateStatus(context.Background(), d.projectID, ep.ID, domain.EndpointStatusActive)
	assertAppError(t, err, "PAY_002")
}

func TestEndpointService_UpdateStatus_OtherProject(t *testing.T) {
	d := setupEndpointService(t)
	ep := &domain.WebhookEndpoint{ID: uuid.New(), ProjectID: uuid.New(), Status: domain.EndpointStatusActive}
	d.endpointRepo.EXPECT().GetByID(gomock.Any(), ep.ID).Return(ep, nil)

	_, err := d.svc.UpdateStatus(context.Background(), d.projectID, ep.ID, domain.EndpointStatusPaused)
	assertAppError(t, err, "PAY_004")
}

func TestEndpointService_RotateSecret(t *testing.T) {
	d := setupEndpointService(t)
	ep := &domain.WebhookEndpoint{ID: uuid.New(), ProjectID: d.projectID, Status: domain.EndpointStatusActive}

	var newEnc string
	d.endpointRepo.EXPECT().GetByID(gomock.Any(), ep.ID).Return(ep, nil)
	d.endpointRepo.EXPECT().UpdateSecret(gomock.Any(), ep.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, enc string) error {
			newEnc = enc
			return nil
		})

	secret, err := d.svc.RotateSecret(context.Background(), d.projectID, ep.ID)
	require.NoError(t, err)
	plain, err := d.encSvc.Decrypt(newEnc)
	require.NoError(t, err)
	assert.Equal(t, secret, plain)
}

func TestEndpointService_ListDeliveries(t *testing.T) {
	d := setupEndpointService(t)
	eventID := uuid.New()

	d.eventRepo.EXPECT().GetByID(gomock.Any(), eventID).Return(&domain.Event{ID: eventID, ProjectID: d.projectID}, nil)
	d.deliveryRepo.EXPECT().ListByEvent(gomock.Any(), eventID).
		Return([]domain.EventDelivery{{EventID: eventID, Attempt: 1}, {EventID: eventID, Attempt: 2}}, nil)

	got, err := d.svc.ListDeliveries(context.Background(), d.projectID, eventID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEndpointService_ListDeliveries_ForeignEvent(t *testing.T) {
	d := setupEndpointService(t)
	eventID := uuid.New()
	d.eventRepo.EXPECT().GetByID(gomock.Any(), eventID).Return(&domain.Event{ID: eventID, ProjectID: uuid.New()}, nil)

	_, err := d.svc.ListDeliveries(context.Background(), d.projectID, eventID)
	assertAppError(t, err, "PAY_004")
}
