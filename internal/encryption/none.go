package encryption

import (
	"fmt"
	"io"

	"edusphere/internal/portal"
)

// NoneEncryptor publishes catalogs as plain TOML. Catalogs only hold what a
// student can already see in the portal, so this is the default.
type NoneEncryptor struct{}

var _ portal.Encryptor = NoneEncryptor{}

func (NoneEncryptor) Setup(string) error { return nil }

func (NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (NoneEncryptor) Unlock(string) (portal.DecryptionContext, error) {
	return noneDecryptionContext{}, nil
}

func (NoneEncryptor) IsConfigured() bool { return true }

func (NoneEncryptor) Extension() string { return "" }

type noneDecryptionContext struct{}

func (noneDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
