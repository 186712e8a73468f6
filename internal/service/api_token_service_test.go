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

func TestAPITokenService_Issue(t *testing.T) {
	ctrl := gomock.NewController(t)
	projectRepo := mocks.NewMockProjectRepository(ctrl)
	tokenRepo := mocks.NewMockAPITokenRepository(ctrl)
	hashSvc := NewArgon2HashServiceWithParams(Argon2Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16})
	svc := NewAPITokenService(projectRepo, tokenRepo, hashSvc)

	project := &domain.Project{ID: uuid.New()}
	projectRepo.EXPECT().GetByID(gomock.Any(), project.ID).Return(project, nil)

	var stored *domain.APIToken
	tokenRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tok *domain.APIToken) error {
		stored = tok
		return nil
	})

	issued, err := svc.Issue(context.Background(), ports.IssueTokenRequest{
		ProjectID:   project.ID,
		Name:        "backend",
		Environment: domain.EnvironmentLive,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(issued.APIKey, "ccg_live_"))
	assert.Equal(t, domain.APIKeyPrefix(issued.APIKey), stored.Prefix)
	assert.Equal(t, domain.TokenStatusActive, stored.Status)
	assert.NotContains(t, stored.TokenHash, issued.APIKey)

	ok, err := hashSvc.Verify(issued.APIKey, stored.TokenHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAPITokenService_Issue_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewAPITokenService(mocks.NewMockProjectRepository(ctrl), mocks.NewMockAPITokenRepository(ctrl), mocks.NewMockHashService(ctrl))

	_, err := svc.Issue(context.Background(), ports.IssueTokenRequest{ProjectID: uuid.New(), Name: "x", Environment: "STAGING"})
	assertAppError(t, err, "PAY_002")

	_, err = svc.Issue(context.Background(), ports.IssueTokenRequest{ProjectID: uuid.New(), Environment: domain.EnvironmentTest})
	assertAppError(t, err, "PAY_002")
}

func TestAPITokenService_Issue_UnknownProject(t *testing.T) {
	ctrl := gomock.NewController(t)
	projectRepo := mocks.NewMockProjectRepository(ctrl)
	svc := NewAPITokenService(projectRepo, mocks.NewMockAPITokenRepository(ctrl), mocks.NewMockHashService(ctrl))

	id := uuid.New()
	projectRepo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

	_, err := svc.Issue(context.Background(), ports.IssueTokenRequest{ProjectID: id, Name: "x", Environment: domain.EnvironmentTest})
	assertAppError(t, err, "PAY_004")
}
