package encryption

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"edusphere/internal/portal"
)

const testSealLine = "edusphere-test-seal 1\n"

// testMask scrambles sealed bodies so TOML keys never show through.
var testMask = []byte("edusphere")

var errNotTestSealed = errors.New("not a test-sealed catalog")

// TestEncryptor seals catalogs without keys. The output is a header line
// followed by the catalog XORed with a fixed mask: deterministic, reversible
// and never equal to the plaintext.
//
// It is always configured. Once Setup records a passphrase, Unlock only
// accepts that passphrase.
type TestEncryptor struct {
	passphrase *string
}

var _ portal.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = &passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, testSealLine); err != nil {
		return fmt.Errorf("writing seal header: %w", err)
	}
	if _, err := io.Copy(&maskWriter{w: w}, r); err != nil {
		return fmt.Errorf("sealing catalog: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (portal.DecryptionContext, error) {
	if e.passphrase != nil && *e.passphrase != passphrase {
		return nil, ErrBadPassphrase
	}
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

func (e *TestEncryptor) Extension() string { return ".test" }

// TestDecryptionContext opens catalogs sealed by TestEncryptor.
type TestDecryptionContext struct{}

var _ portal.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil || header != testSealLine {
		return errNotTestSealed
	}
	if _, err := io.Copy(&maskWriter{w: w}, br); err != nil {
		return fmt.Errorf("opening sealed catalog: %w", err)
	}
	return nil
}

// maskWriter XORs everything written through it with testMask.
type maskWriter struct {
	w   io.Writer
	off int
}

func (m *maskWriter) Write(p []byte) (int, error) {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = b ^ testMask[(m.off+i)%len(testMask)]
	}
	n, err := m.w.Write(out)
	m.off += n
	return n, err
}
