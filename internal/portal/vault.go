package portal

import "io"

// Vault is a destination for published catalogs.
// A maintainer (or CI) picks the newest catalog up from here and commits it as the
// next seed; the portal never reads a published catalog back into a running session.
type Vault interface {
	// Name identifies the vault in logs and the publish history.
	Name() string

	// PutCatalog stores a named catalog document.
	// size is the number of bytes that will be read from r.
	// version is stored alongside the document for consistency checks.
	PutCatalog(name string, r io.Reader, size int64, version int64) error

	// GetCatalog retrieves a named catalog document and writes it to w.
	// Returns an error wrapping ErrNotFound if nothing was published under that name.
	GetCatalog(name string, w io.Writer) error

	// GetCatalogVersion returns the version stored with a named catalog.
	// Returns 0 if nothing has been published under that name.
	GetCatalogVersion(name string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}

// Encryptor seals published catalogs.
// Encryption uses the public key only; decryption requires the passphrase that
// protects the private key.
type Encryptor interface {
	// Setup performs one-time key generation, protecting the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a DecryptionContext.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if the keys exist.
	IsConfigured() bool

	// Extension is appended to the published document name (e.g. ".age").
	Extension() string
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
