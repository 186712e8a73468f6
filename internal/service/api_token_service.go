package service

import (
	"context"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// apiKeyRandomBytes is the entropy of an API key after its scheme.
const apiKeyRandomBytes = 32

type apiTokenService struct {
	projectRepo ports.ProjectRepository
	tokenRepo   ports.APITokenRepository
	hashSvc     ports.HashService
}

// NewAPITokenService creates the API token issuer.
func NewAPITokenService(
	projectRepo ports.ProjectRepository,
	tokenRepo ports.APITokenRepository,
	hashSvc ports.HashService,
) ports.APITokenService {
	return &apiTokenService{
		projectRepo: projectRepo,
		tokenRepo:   tokenRepo,
		hashSvc:     hashSvc,
	}
}

// Issue creates a token for the project. The plaintext key is returned once;
// only its prefix and Argon2id hash are stored.
func (s *apiTokenService) Issue(ctx context.Context, req ports.IssueTokenRequest) (*ports.IssuedToken, error) {
	if req.Environment != domain.EnvironmentTest && req.Environment != domain.EnvironmentLive {
		return nil, apperror.Validation(fmt.Sprintf("invalid environment %q", req.Environment))
	}
	if req.Name == "" {
		return nil, apperror.Validation("name is required")
	}

	project, err := s.projectRepo.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if project == nil {
		return nil, apperror.ErrNotFound("Project")
	}

	apiKey, err := generateKey(domain.APIKeyScheme(req.Environment), apiKeyRandomBytes)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate api key: %w", err))
	}
	hash, err := s.hashSvc.Hash(apiKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash api key: %w", err))
	}

	token := &domain.APIToken{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		Name:        req.Name,
		Prefix:      domain.APIKeyPrefix(apiKey),
		TokenHash:   hash,
		Environment: req.Environment,
		Status:      domain.TokenStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	return &ports.IssuedToken{Token: token, APIKey: apiKey}, nil
}
