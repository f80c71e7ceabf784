// Package encryption seals catalogs before they are published to a vault.
package encryption

import (
	"errors"
	"fmt"

	"edusphere/internal/config"
	"edusphere/internal/portal"
)

var (
	// ErrKeysMissing is returned when the publish keys have not been generated.
	ErrKeysMissing = errors.New("publish keys are missing; run 'edusphere publish keys'")

	// ErrBadPassphrase is returned by Unlock when the passphrase does not open the private key.
	ErrBadPassphrase = errors.New("wrong passphrase")
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (portal.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return NoneEncryptor{}, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
