package portal

import (
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// PasscodeVerifier checks a passcode typed at the gate.
type PasscodeVerifier interface {
	Verify(passcode string) bool
}

// BcryptVerifier verifies passcodes against a bcrypt hash.
// An empty hash rejects every passcode.
type BcryptVerifier struct {
	Hash string
}

func (v BcryptVerifier) Verify(passcode string) bool {
	if v.Hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(v.Hash), []byte(passcode)) == nil
}

// HashPasscode returns the bcrypt hash to put in the gate configuration.
func HashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing passcode: %w", err)
	}
	return string(hash), nil
}

// AccessGate toggles admin mode, which reveals mutation operations.
//
// This is a UX toggle, not access control. The flag lives in the profile
// Storage next to the edits it guards, so anyone with access to the profile
// can set it, and the Repository accepts mutations regardless.
type AccessGate struct {
	storage  Storage
	verifier PasscodeVerifier
	logger   Logger
}

// NewAccessGate creates an AccessGate.
func NewAccessGate(storage Storage, verifier PasscodeVerifier, logger Logger) *AccessGate {
	return &AccessGate{storage: storage, verifier: verifier, logger: logger}
}

// Login sets the admin flag if passcode is accepted.
func (g *AccessGate) Login(passcode string) bool {
	if !g.verifier.Verify(passcode) {
		g.logger.Info("admin login rejected")
		return false
	}
	if err := g.storage.Put(KeyAdmin, []byte(strconv.FormatBool(true))); err != nil {
		g.logger.Warn("admin flag not persisted", "error", err)
	}
	g.logger.Info("admin mode enabled")
	return true
}

// Logout clears the admin flag.
func (g *AccessGate) Logout() {
	if err := g.storage.Delete(KeyAdmin); err != nil {
		g.logger.Warn("clearing admin flag failed", "error", err)
	}
	g.logger.Info("admin mode disabled")
}

// Privileged reports whether admin mode is on.
func (g *AccessGate) Privileged() bool {
	data, err := g.storage.Get(KeyAdmin)
	if err != nil {
		g.logger.Warn("reading admin flag failed", "error", err)
		return false
	}
	on, err := strconv.ParseBool(string(data))
	return err == nil && on
}

// Require returns ErrNotPrivileged unless admin mode is on.
func (g *AccessGate) Require() error {
	if !g.Privileged() {
		return ErrNotPrivileged
	}
	return nil
}
