package portal

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// DisplayDate formats t the way folders and materials show their dates.
func DisplayDate(t time.Time) string {
	return t.Format("1/2/2006")
}

// IDKind selects the prefix of a generated id.
type IDKind string

const (
	KindFolder   IDKind = "fld"
	KindMaterial IDKind = "mat"
)

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New(kind IDKind) string
}

// tokenLength is the number of base-36 characters after the prefix.
const tokenLength = 12

// PrefixedIDGenerator produces ids like "fld-k3j9x0a1b2c4".
// The token comes from a random UUID; uniqueness is probabilistic.
type PrefixedIDGenerator struct{}

func (PrefixedIDGenerator) New(kind IDKind) string {
	u := uuid.New()
	token := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(token) < tokenLength {
		token = strings.Repeat("0", tokenLength-len(token)) + token
	}
	return string(kind) + "-" + token[len(token)-tokenLength:]
}

// NewSessionID returns an identifier for one running session of the portal.
func NewSessionID() string {
	return uuid.New().String()
}
