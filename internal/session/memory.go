package session

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// memoryStore keeps uploaded content in a map keyed by checksum.
type memoryStore struct {
	blobs map[string][]byte
	size  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string][]byte)}
}

func (s *memoryStore) StoreContent(r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("reading content: %w", err)
	}
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	if _, ok := s.blobs[checksum]; !ok {
		s.blobs[checksum] = data
		s.size += int64(len(data))
	}
	return checksum, int64(len(data)), nil
}

func (s *memoryStore) RemoveContent(checksum string) {
	if data, ok := s.blobs[checksum]; ok {
		s.size -= int64(len(data))
		delete(s.blobs, checksum)
	}
}

func (s *memoryStore) OpenContent(checksum string) (io.ReadCloser, error) {
	data, ok := s.blobs[checksum]
	if !ok {
		return nil, fmt.Errorf("content %s not found", checksum)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) ContentSize() int64 {
	return s.size
}

func (s *memoryStore) Close() error {
	s.blobs = make(map[string][]byte)
	s.size = 0
	return nil
}
