package service

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
)

// Visible prefix of webhook signing secrets.
const webhookSecretPrefix = "whsec_"

// generateKey returns prefix followed by length random bytes in base58.
func generateKey(prefix string, length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + base58.Encode(b), nil
}
