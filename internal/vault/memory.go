package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"edusphere/internal/portal"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps published catalogs in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name     string
	catalogs map[string][]byte
	versions map[string]int64
	mu       sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		catalogs: make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

func (m *MemoryVault) Name() string {
	return m.name
}

// PutCatalog stores a named catalog document along with its version.
func (m *MemoryVault) PutCatalog(name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalogs[name] = data
	m.versions[name] = version
	return nil
}

// GetCatalog retrieves a named catalog document.
func (m *MemoryVault) GetCatalog(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.catalogs[name]
	if !ok {
		return fmt.Errorf("catalog %q: %w", name, portal.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}

	return nil
}

// GetCatalogVersion returns the version stored with a named catalog.
// Returns 0 if nothing has been published under that name.
func (m *MemoryVault) GetCatalogVersion(name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versions[name], nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements portal.Vault interface
var _ portal.Vault = (*MemoryVault)(nil)
