package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Environment is the mode an API token was issued for.
type Environment string

const (
	EnvironmentTest Environment = "TEST"
	EnvironmentLive Environment = "LIVE"
)

// Network returns the chain network payments created with this environment settle on.
func (e Environment) Network() Network {
	if e == EnvironmentLive {
		return NetworkMainnet
	}
	return NetworkDevnet
}

// TokenStatus represents whether an API token may be used.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "ACTIVE"
	TokenStatusRevoked TokenStatus = "REVOKED"
)

// APIKeyPrefixLength is how many leading characters of a key are stored in clear
// to narrow hash verification to a handful of candidates.
const APIKeyPrefixLength = 12

// APIToken is a project credential used by merchant backends to create sessions.
type APIToken struct {
	ID           uuid.UUID   `json:"id"`
	ProjectID    uuid.UUID   `json:"project_id"`
	Name         string      `json:"name"`
	Prefix       string      `json:"prefix"`
	TokenHash    string      `json:"-"` // Argon2id, never expose
	Environment  Environment `json:"environment"`
	Status       TokenStatus `json:"status"`
	LastUsedAt   *time.Time  `json:"last_used_at,omitempty"`
	RequestCount int64       `json:"request_count"`
	CreatedAt    time.Time   `json:"created_at"`
}

// IsActive returns true if the token may authenticate requests.
func (t *APIToken) IsActive() bool {
	return t.Status == TokenStatusActive
}

// APIKeyPrefix returns the lookup prefix of a plaintext key.
func APIKeyPrefix(apiKey string) string {
	if len(apiKey) <= APIKeyPrefixLength {
		return apiKey
	}
	return apiKey[:APIKeyPrefixLength]
}

// APIKeyScheme returns the visible scheme of keys for an environment, e.g. "ccg_test_".
func APIKeyScheme(env Environment) string {
	return "ccg_" + strings.ToLower(string(env)) + "_"
}
