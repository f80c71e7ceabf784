package session

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"edusphere/internal/portal"
)

// Registry holds the files uploaded during one running session and hands out
// session references to them. References from any other session never resolve.
// This implementation is safe for concurrent use.
type Registry struct {
	sessionID string
	store     blobStore
	maxSize   int64

	mu        sync.Mutex
	resources map[string]*entry
}

type entry struct {
	resource portal.Resource
	checksum string
}

var _ portal.SessionResources = (*Registry)(nil)

func newRegistry(sessionID string, store blobStore, maxSize int64) *Registry {
	return &Registry{
		sessionID: sessionID,
		store:     store,
		maxSize:   maxSize,
		resources: make(map[string]*entry),
	}
}

// NewMemoryRegistry creates a Registry that keeps uploads in memory.
// maxSize is the maximum total size in bytes; must be positive.
func NewMemoryRegistry(sessionID string, maxSize int64) *Registry {
	return newRegistry(sessionID, newMemoryStore(), maxSize)
}

// NewFileSystemRegistry creates a Registry that spools uploads to a temporary
// directory under dir. The directory is removed by Close.
func NewFileSystemRegistry(sessionID, dir string, maxSize int64) (*Registry, error) {
	store, err := newFilesystemStore(dir)
	if err != nil {
		return nil, err
	}
	return newRegistry(sessionID, store, maxSize), nil
}

// SessionID returns the id embedded in every reference this registry mints.
func (s *Registry) SessionID() string {
	return s.sessionID
}

// Put stores the content read from r.
func (s *Registry) Put(name, mime string, r io.Reader) (*portal.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.store.ContentSize()
	checksum, size, err := s.store.StoreContent(r)
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	if s.store.ContentSize() > s.maxSize {
		if s.store.ContentSize() != before {
			s.store.RemoveContent(checksum)
		}
		return nil, fmt.Errorf("%w: would exceed max size of %d bytes", portal.ErrStorageFull, s.maxSize)
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	res := portal.Resource{
		Ref:      portal.SessionRef(s.sessionID, token),
		Name:     name,
		MIME:     mime,
		Size:     size,
		Checksum: checksum,
	}
	s.resources[token] = &entry{resource: res, checksum: checksum}

	out := res
	return &out, nil
}

// Stat returns the resource for ref, or nil if this session does not hold it.
func (s *Registry) Stat(ref string) *portal.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookupLocked(ref)
	if e == nil {
		return nil
	}
	out := e.resource
	return &out
}

// Open returns a reader for the content behind ref.
func (s *Registry) Open(ref string) (io.ReadCloser, *portal.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookupLocked(ref)
	if e == nil {
		return nil, nil, fmt.Errorf("resource %s: %w", ref, portal.ErrNotFound)
	}
	rc, err := s.store.OpenContent(e.checksum)
	if err != nil {
		return nil, nil, fmt.Errorf("opening resource: %w", err)
	}
	out := e.resource
	return rc, &out, nil
}

// Remove forgets ref, dropping the content once nothing else refers to it.
func (s *Registry) Remove(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID, token, ok := portal.ParseSessionRef(ref)
	if !ok || sessionID != s.sessionID {
		return
	}
	e, ok := s.resources[token]
	if !ok {
		return
	}
	delete(s.resources, token)
	for _, other := range s.resources {
		if other.checksum == e.checksum {
			return
		}
	}
	s.store.RemoveContent(e.checksum)
}

// Count returns the number of resources held.
func (s *Registry) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// Size returns the total size of held content in bytes.
func (s *Registry) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ContentSize()
}

// Close discards every upload. References minted earlier stop resolving.
func (s *Registry) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = make(map[string]*entry)
	return s.store.Close()
}

func (s *Registry) lookupLocked(ref string) *entry {
	sessionID, token, ok := portal.ParseSessionRef(ref)
	if !ok || sessionID != s.sessionID {
		return nil
	}
	return s.resources[token]
}
