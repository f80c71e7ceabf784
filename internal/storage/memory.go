package storage

import (
	"sync"

	"edusphere/internal/portal"
)

// MemoryStorage is an in-memory implementation of portal.Storage.
// Nothing survives the process, which makes it useful for testing and demos.
// This implementation is safe for concurrent use.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ portal.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

func (s *MemoryStorage) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte{}, value...)
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys returns the number of stored keys.
func (s *MemoryStorage) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func (s *MemoryStorage) Close() error {
	return nil
}
