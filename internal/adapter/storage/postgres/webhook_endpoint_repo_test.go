package postgres

import (
	"context"
	"testing"
	"time"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEndpoint(projectID uuid.UUID) *domain.WebhookEndpoint {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.WebhookEndpoint{
		ID:         uuid.New(),
		ProjectID:  projectID,
		URL:        "https://merchant.example.com/hooks",
		SecretEnc:  "deadbeef",
		Status:     domain.EndpointStatusActive,
		EventTypes: []string{domain.WebhookEventPaymentCompleted},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func endpointRows(endpoints ...*domain.WebhookEndpoint) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "project_id", "url", "secret_enc", "status", "event_types",
		"description", "last_hit_at", "created_at", "updated_at"})
	for _, w := range endpoints {
		rows.AddRow(w.ID, w.ProjectID, w.URL, w.SecretEnc, w.Status, w.EventTypes,
			w.Description, w.LastHitAt, w.CreatedAt, w.UpdatedAt)
	}
	return rows
}

func TestWebhookEndpointRepo_Create_EmptyFilter(t *testing.T) {
	mock := newMock(t)
	w := newTestEndpoint(uuid.New())
	w.EventTypes = nil

	mock.ExpectExec("INSERT INTO webhook_endpoints").
		WithArgs(w.ID, w.ProjectID, w.URL, w.SecretEnc, w.Status, []string{},
			w.Description, w.LastHitAt, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, NewWebhookEndpointRepo(mock).Create(context.Background(), w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEndpointRepo_ListActiveByProject(t *testing.T) {
	mock := newMock(t)
	projectID := uuid.New()
	a, b := newTestEndpoint(projectID), newTestEndpoint(projectID)

	mock.ExpectQuery("SELECT (.+) FROM webhook_endpoints\\s+WHERE project_id = \\$1 AND status = 'ACTIVE'").
		WithArgs(projectID).
		WillReturnRows(endpointRows(a, b))

	got, err := NewWebhookEndpointRepo(mock).ListActiveByProject(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Subscribes(domain.WebhookEventPaymentCompleted))
	assert.False(t, got[0].Subscribes(domain.WebhookEventPaymentFailed))
}

func TestWebhookEndpointRepo_Updates(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	at := time.Now().UTC()
	repo := NewWebhookEndpointRepo(mock)

	mock.ExpectExec("UPDATE webhook_endpoints SET status").
		WithArgs(domain.EndpointStatusPaused, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE webhook_endpoints SET secret_enc").
		WithArgs("cafebabe", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE webhook_endpoints SET last_hit_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.UpdateStatus(context.Background(), id, domain.EndpointStatusPaused))
	assert.NoError(t, repo.UpdateSecret(context.Background(), id, "cafebabe"))
	assert.ErrorContains(t, repo.TouchLastHit(context.Background(), id, at), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
