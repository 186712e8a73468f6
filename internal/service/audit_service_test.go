package service

import (
	"context"
	"errors"
	"testing"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuditService_PersistsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(repo, newTestLogger())

	var got []domain.AuditAction
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, log *domain.AuditLog) error {
			got = append(got, log.Action)
			return nil
		},
	).Times(2)

	projectID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	svc.Log(ctx, domain.NewAuditLog(domain.AuditActionCreateWebhook, "webhook_endpoint", uuid.NewString()).ForProject(projectID))
	cancel()
	svc.Log(ctx, domain.NewAuditLog(domain.AuditActionRotateWebhookSecret, "webhook_endpoint", uuid.NewString()))

	svc.Close()
	assert.Equal(t, []domain.AuditAction{domain.AuditActionCreateWebhook, domain.AuditActionRotateWebhookSecret}, got,
		"a cancelled request context does not stop the write")
}

func TestAuditService_RepoErrorIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(repo, newTestLogger())

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	svc.Log(context.Background(), domain.NewAuditLog(domain.AuditActionCreateSession, "session", "sess_1"))
	assert.NotPanics(t, svc.Close)
}

func TestAuditService_DropsWhenFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *domain.AuditLog) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		},
	).Times(2)

	svc := newAuditService(repo, newTestLogger(), 1)
	entry := func() *domain.AuditLog { return domain.NewAuditLog(domain.AuditActionCreateSession, "session", "s") }

	svc.Log(context.Background(), entry())
	<-started // writer is now blocked on the first entry
	svc.Log(context.Background(), entry())
	svc.Log(context.Background(), entry())

	assert.Equal(t, int64(1), svc.Dropped())
	close(release)
	svc.Close()
}

func TestAuditService_LogAfterClose(t *testing.T) {
	svc := NewAuditService(nil, newTestLogger())
	svc.Close()
	svc.Close()

	assert.NotPanics(t, func() {
		svc.Log(context.Background(), domain.NewAuditLog(domain.AuditActionCreateSession, "session", "s"))
	})
}
