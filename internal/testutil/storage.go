package testutil

import (
	"errors"

	"edusphere/internal/portal"
	"edusphere/internal/storage"
)

// NewTestStorage creates an empty in-memory profile store.
func NewTestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// ErrStorageUnavailable is returned by FailingStorage.
var ErrStorageUnavailable = errors.New("storage unavailable")

// FailingStorage wraps a Storage and fails selected operations, the way a
// full disk or a locked profile would.
type FailingStorage struct {
	portal.Storage
	FailGet    bool
	FailPut    bool
	FailDelete bool
}

func (s *FailingStorage) Get(key string) ([]byte, error) {
	if s.FailGet {
		return nil, ErrStorageUnavailable
	}
	return s.Storage.Get(key)
}

func (s *FailingStorage) Put(key string, value []byte) error {
	if s.FailPut {
		return ErrStorageUnavailable
	}
	return s.Storage.Put(key, value)
}

func (s *FailingStorage) Delete(key string) error {
	if s.FailDelete {
		return ErrStorageUnavailable
	}
	return s.Storage.Delete(key)
}
