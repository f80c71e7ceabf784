package testutil

import (
	"edusphere/internal/encryption"
	"edusphere/internal/portal"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() portal.Encryptor {
	return encryption.NewTestEncryptor()
}
