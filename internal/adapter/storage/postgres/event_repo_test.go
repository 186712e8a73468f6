package postgres

import (
	"context"
	"testing"
	"time"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent() *domain.Event {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Event{
		ID:        uuid.New(),
		PaymentID: uuid.New(),
		ProjectID: uuid.New(),
		SessionID: uuid.NewString(),
		Type:      domain.EventTypePayment,
		Metadata: map[string]any{
			domain.MetaMerchant: map[string]any{"orderId": "42"},
			domain.MetaNetwork:  "devnet",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func eventRows(e *domain.Event) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "payment_id", "project_id", "session_id", "type", "metadata", "created_at", "updated_at"}).
		AddRow(e.ID, e.PaymentID, e.ProjectID, e.SessionID, e.Type, e.Metadata, e.CreatedAt, e.UpdatedAt)
}

func TestEventRepo_Create(t *testing.T) {
	mock := newMock(t)
	e := newTestEvent()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").
		WithArgs(e.ID, e.PaymentID, e.ProjectID, e.SessionID, e.Type, e.Metadata, e.CreatedAt, e.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, NewEventRepo(mock).Create(context.Background(), tx, e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_GetBySessionID(t *testing.T) {
	mock := newMock(t)
	e := newTestEvent()

	mock.ExpectQuery("SELECT (.+) FROM events WHERE session_id").
		WithArgs(e.SessionID).
		WillReturnRows(eventRows(e))

	got, err := NewEventRepo(mock).GetBySessionID(context.Background(), e.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.PaymentID, got.PaymentID)
	assert.Equal(t, "devnet", got.MetaString(domain.MetaNetwork))
	assert.Equal(t, "42", got.MerchantMetadata()["orderId"])
}

func TestEventRepo_GetByPaymentID_NotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM events WHERE payment_id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	got, err := NewEventRepo(mock).GetByPaymentID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestEventRepo_Transition_MergesPatch(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	patch := map[string]any{domain.MetaTransactionSignature: "5sig"}

	mock.ExpectBegin()
	mock.ExpectExec("metadata = COALESCE\\(metadata, '\\{\\}'::jsonb\\) \\|\\| \\$2::jsonb").
		WithArgs(domain.EventTypePaymentCompleted, patch, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, NewEventRepo(mock).Transition(context.Background(), tx, id, domain.EventTypePaymentCompleted, patch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Transition_NilPatchAndMissingRow(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE events").
		WithArgs(domain.EventTypePaymentFailed, map[string]any{}, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = NewEventRepo(mock).Transition(context.Background(), tx, id, domain.EventTypePaymentFailed, nil)
	assert.ErrorContains(t, err, "event not found")
}
