package portal

import (
	"io"
	"strings"
)

// Resource describes an uploaded file held in memory for the current session.
type Resource struct {
	Ref      string
	Name     string
	MIME     string
	Size     int64
	Checksum string
}

// SessionResources holds uploaded file content for one running session.
// Nothing here is persisted: a new session starts empty, so references minted
// by an earlier session no longer resolve.
type SessionResources interface {
	// SessionID identifies the session that mints references.
	SessionID() string

	// Put stores content read from r and returns a session reference to it.
	Put(name, mime string, r io.Reader) (*Resource, error)

	// Stat returns the resource for ref, or nil if it is not held by this session.
	Stat(ref string) *Resource

	// Open returns a reader for the resource content.
	Open(ref string) (io.ReadCloser, *Resource, error)

	// Remove releases ref. Unknown or foreign references are ignored.
	Remove(ref string)
}

// sessionScheme prefixes session references: "session:<sessionID>/<token>".
const sessionScheme = "session:"

// SessionRef builds a session reference.
func SessionRef(sessionID, token string) string {
	return sessionScheme + sessionID + "/" + token
}

// ParseSessionRef splits a session reference into its session id and token.
func ParseSessionRef(ref string) (sessionID, token string, ok bool) {
	rest, found := strings.CutPrefix(ref, sessionScheme)
	if !found {
		return "", "", false
	}
	sessionID, token, ok = strings.Cut(rest, "/")
	if !ok || sessionID == "" || token == "" {
		return "", "", false
	}
	return sessionID, token, true
}
