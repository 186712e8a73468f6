package service

import (
	"errors"
	"fmt"
	"time"

	"crypto-checkout-gateway/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// consoleAudience is the aud claim every console token must carry.
const consoleAudience = "checkout-console"

// ErrConsoleToken wraps every reason a console token is rejected.
var ErrConsoleToken = errors.New("invalid console token")

// consoleClaims is the console token body: the registered claims plus the
// project the bearer may manage.
type consoleClaims struct {
	ProjectID string `json:"project_id"`
	jwt.RegisteredClaims
}

// JWTTokenService issues and validates HS256 console tokens. Tokens are minted
// by the dashboard with the shared secret; Generate serves tooling and tests.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewJWTTokenService creates the console token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		leeway: 30 * time.Second,
		now:    time.Now,
	}
}

// Generate signs a token granting subject access to projectID's console.
func (s *JWTTokenService) Generate(projectID uuid.UUID, subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := consoleClaims{
		ProjectID: projectID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{consoleAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer, audience and expiry, then returns the
// project grant.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims consoleClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(consoleAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConsoleToken, err)
	}

	projectID, err := uuid.Parse(claims.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: project_id claim: %w", ErrConsoleToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrConsoleToken)
	}

	return &ports.TokenClaims{
		ProjectID: projectID,
		Subject:   claims.Subject,
	}, nil
}
