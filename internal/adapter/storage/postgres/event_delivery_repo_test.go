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

func newTestDelivery(attempt int, status domain.DeliveryStatus) *domain.EventDelivery {
	code := 500
	return &domain.EventDelivery{
		ID:           uuid.New(),
		EventID:      uuid.New(),
		EndpointID:   uuid.New(),
		EventType:    domain.WebhookEventPaymentCompleted,
		Payload:      `{"event":"payment.completed"}`,
		Attempt:      attempt,
		Status:       status,
		HTTPStatus:   &code,
		ResponseBody: strPtr("upstream error"),
		DeliveredAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func deliveryRows(deliveries ...*domain.EventDelivery) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "event_id", "endpoint_id", "event_type", "payload", "attempt", "status",
		"http_status", "response_body", "error_message", "delivered_at"})
	for _, d := range deliveries {
		rows.AddRow(d.ID, d.EventID, d.EndpointID, d.EventType, d.Payload, d.Attempt, d.Status,
			d.HTTPStatus, d.ResponseBody, d.ErrorMessage, d.DeliveredAt)
	}
	return rows
}

func TestEventDeliveryRepo_Create(t *testing.T) {
	mock := newMock(t)
	d := newTestDelivery(1, domain.DeliveryStatusFailed)

	mock.ExpectExec("INSERT INTO event_deliveries").
		WithArgs(d.ID, d.EventID, d.EndpointID, d.EventType, d.Payload, d.Attempt, d.Status,
			d.HTTPStatus, d.ResponseBody, d.ErrorMessage, d.DeliveredAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, NewEventDeliveryRepo(mock).Create(context.Background(), d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDeliveryRepo_ListByEvent(t *testing.T) {
	mock := newMock(t)
	second := newTestDelivery(2, domain.DeliveryStatusDelivered)
	first := newTestDelivery(1, domain.DeliveryStatusFailed)
	first.EventID = second.EventID

	mock.ExpectQuery("SELECT (.+) FROM event_deliveries\\s+WHERE event_id = \\$1").
		WithArgs(second.EventID).
		WillReturnRows(deliveryRows(second, first))

	got, err := NewEventDeliveryRepo(mock).ListByEvent(context.Background(), second.EventID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Succeeded())
	assert.Equal(t, 1, got[1].Attempt)
}

func TestEventDeliveryRepo_ListLatestFailed(t *testing.T) {
	mock := newMock(t)
	d := newTestDelivery(3, domain.DeliveryStatusFailed)

	mock.ExpectQuery("DISTINCT ON \\(event_id, endpoint_id\\)(.+)WHERE status = 'FAILED' AND attempt < \\$1").
		WithArgs(6, 100).
		WillReturnRows(deliveryRows(d))

	got, err := NewEventDeliveryRepo(mock).ListLatestFailed(context.Background(), 6, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Attempt)
	assert.Equal(t, 500, *got[0].HTTPStatus)
}
