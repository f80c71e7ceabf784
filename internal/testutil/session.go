package testutil

import (
	"testing"

	"edusphere/internal/session"
)

// DefaultSessionMaxSize is the default max size for test sessions (10MB).
const DefaultSessionMaxSize = 10 * 1024 * 1024

// NewTestSessions creates an in-memory session registry that is closed when
// the test completes.
func NewTestSessions(t *testing.T, sessionID string) *session.Registry {
	t.Helper()
	reg := session.NewMemoryRegistry(sessionID, DefaultSessionMaxSize)
	t.Cleanup(func() { reg.Close() })
	return reg
}
