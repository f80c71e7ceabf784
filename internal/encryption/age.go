package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"filippo.io/age"
	"filippo.io/age/armor"

	"edusphere/internal/config"
	"edusphere/internal/portal"
)

// AgeEncryptor seals published catalogs to the maintainer's X25519 key.
//
// Key files:
//
//	public_key_path   age1... recipient, plaintext, readable by anyone who publishes
//	private_key_path  AGE-SECRET-KEY-1... identity, sealed with the passphrase (scrypt)
//
// Anyone with the config can publish; only the passphrase holder can read a
// published catalog back.
type AgeEncryptor struct {
	publicKey  string
	privateKey string
	armor      bool
}

var _ portal.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates an AgeEncryptor for the key files named in cfg.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKey:  cfg.PublicKeyPath,
		privateKey: cfg.PrivateKeyPath,
		armor:      cfg.Armor,
	}
}

// Setup generates the publish key pair. The private key is written first so
// IsConfigured only turns true once both files are complete.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return errors.New("publish key passphrase must not be empty")
	}
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating publish key: %w", err)
	}

	lock, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("deriving passphrase key: %w", err)
	}
	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, lock)
	if err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing private key: %w", err)
	}

	if err := writeKeyFile(e.privateKey, sealed.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := writeKeyFile(e.publicKey, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// Encrypt seals the catalog read from r to the public key.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.recipient()
	if err != nil {
		return err
	}

	var armored io.WriteCloser
	if e.armor {
		armored = armor.NewWriter(w)
		w = armored
	}
	sealer, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("sealing catalog: %w", err)
	}
	if _, err := io.Copy(sealer, r); err != nil {
		return fmt.Errorf("sealing catalog: %w", err)
	}
	if err := sealer.Close(); err != nil {
		return fmt.Errorf("sealing catalog: %w", err)
	}
	if armored != nil {
		if err := armored.Close(); err != nil {
			return fmt.Errorf("armoring catalog: %w", err)
		}
	}
	return nil
}

// Unlock opens the private key. A wrong passphrase is reported as ErrBadPassphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (portal.DecryptionContext, error) {
	sealed, err := os.ReadFile(e.privateKey)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeysMissing
	}
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	lock, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPassphrase, err)
	}
	plain, err := age.Decrypt(bytes.NewReader(sealed), lock)
	if errors.Is(err, age.ErrIncorrectIdentity) {
		return nil, ErrBadPassphrase
	}
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}

	identities, err := age.ParseIdentities(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return &AgeDecryptionContext{identity: identities[0], armor: e.armor}, nil
}

// IsConfigured reports whether both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, path := range []string{e.privateKey, e.publicKey} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// Extension is ".age", or ".age.asc" for armored catalogs.
func (e *AgeEncryptor) Extension() string {
	if e.armor {
		return ".age.asc"
	}
	return ".age"
}

func (e *AgeEncryptor) recipient() (age.Recipient, error) {
	data, err := os.ReadFile(e.publicKey)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeysMissing
	}
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing public key %s: %w", e.publicKey, err)
	}
	return recipients[0], nil
}

// writeKeyFile replaces path atomically, creating its directory if needed.
func writeKeyFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// AgeDecryptionContext holds an unlocked publish key.
type AgeDecryptionContext struct {
	identity age.Identity
	armor    bool
}

var _ portal.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt opens a sealed catalog read from r.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	if c.armor {
		r = armor.NewReader(r)
	}
	plain, err := age.Decrypt(r, c.identity)
	if err != nil {
		return fmt.Errorf("opening sealed catalog: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("opening sealed catalog: %w", err)
	}
	return nil
}
