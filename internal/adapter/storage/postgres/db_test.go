package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Pool = (*pgxpool.Pool)(nil)

func strPtr(s string) *string { return &s }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestHealthCheck_Ping(t *testing.T) {
	schemaQuery := `SELECT to_regclass\('public.payments'\) IS NOT NULL`

	tests := []struct {
		name    string
		setup   func(m pgxmock.PgxPoolIface)
		wantErr error
		errText string
	}{
		{
			name: "reachable and migrated",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectPing()
				m.ExpectQuery(schemaQuery).WillReturnRows(pgxmock.NewRows([]string{"migrated"}).AddRow(true))
			},
		},
		{
			name: "unreachable",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectPing().WillReturnError(errors.New("connection refused"))
			},
			errText: "connection refused",
		},
		{
			name: "not migrated",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectPing()
				m.ExpectQuery(schemaQuery).WillReturnRows(pgxmock.NewRows([]string{"migrated"}).AddRow(false))
			},
			wantErr: ErrSchemaMissing,
		},
		{
			name: "schema query fails",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectPing()
				m.ExpectQuery(schemaQuery).WillReturnError(errors.New("permission denied"))
			},
			errText: "checking schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
			require.NoError(t, err)
			defer mock.Close()
			tt.setup(mock)

			hc := NewHealthCheck(mock)
			assert.Equal(t, "postgresql", hc.Name())
			err = hc.Ping(context.Background())
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.ErrorContains(t, err, tt.errText)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransactor_Begin(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}).
		WillReturnError(errors.New("too many connections"))

	tr := NewTransactor(mock)
	tx, err := tr.Begin(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tx)

	_, err = tr.Begin(context.Background())
	assert.ErrorContains(t, err, "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}
