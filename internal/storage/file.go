package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"edusphere/internal/portal"
)

// FileStorage keeps the profile as one JSON document on disk.
// Every operation takes an advisory file lock so the CLI and a running
// server can share a profile, and writes go through a temp file and rename.
type FileStorage struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

var _ portal.Storage = (*FileStorage)(nil)

// NewFileStorage creates a FileStorage backed by path. The file is created on first write.
func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}
	return &FileStorage{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the profile document path.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking profile: %w", err)
	}
	defer s.lock.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (s *FileStorage) Put(key string, value []byte) error {
	return s.update(func(values map[string][]byte) {
		if value == nil {
			value = []byte{}
		}
		values[key] = value
	})
}

func (s *FileStorage) Delete(key string) error {
	return s.update(func(values map[string][]byte) {
		delete(values, key)
	})
}

func (s *FileStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Close()
}

func (s *FileStorage) update(fn func(map[string][]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking profile: %w", err)
	}
	defer s.lock.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return err
	}
	fn(values)
	return s.writeLocked(values)
}

func (s *FileStorage) readLocked() (map[string][]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string][]byte), nil
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	values := make(map[string][]byte)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", s.path, err)
	}
	return values, nil
}

// writeLocked writes atomically: temp file in the same directory, then rename.
func (s *FileStorage) writeLocked(values map[string][]byte) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".profile-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
