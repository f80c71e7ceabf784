package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// filesystemStore spools uploaded content to a private temporary directory
// that is removed when the session closes.
//
// Directory structure:
//
//	<dir>/edusphere-session-*/
//	  <checksum>    (uploaded content)
type filesystemStore struct {
	dir   string
	sizes map[string]int64
	size  int64
}

func newFilesystemStore(parent string) (*filesystemStore, error) {
	if err := os.MkdirAll(parent, 0700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	dir, err := os.MkdirTemp(parent, "edusphere-session-*")
	if err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &filesystemStore{dir: dir, sizes: make(map[string]int64)}, nil
}

func (s *filesystemStore) StoreContent(r io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("writing content: %w", err)
	}

	checksum := hex.EncodeToString(h.Sum(nil))
	if _, ok := s.sizes[checksum]; ok {
		os.Remove(tmpPath)
		return checksum, size, nil
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, checksum)); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("renaming content: %w", err)
	}
	s.sizes[checksum] = size
	s.size += size
	return checksum, size, nil
}

func (s *filesystemStore) RemoveContent(checksum string) {
	size, ok := s.sizes[checksum]
	if !ok {
		return
	}
	os.Remove(filepath.Join(s.dir, checksum))
	delete(s.sizes, checksum)
	s.size -= size
}

func (s *filesystemStore) OpenContent(checksum string) (io.ReadCloser, error) {
	if _, ok := s.sizes[checksum]; !ok {
		return nil, fmt.Errorf("content %s not found", checksum)
	}
	return os.Open(filepath.Join(s.dir, checksum))
}

func (s *filesystemStore) ContentSize() int64 {
	return s.size
}

func (s *filesystemStore) Close() error {
	s.sizes = make(map[string]int64)
	s.size = 0
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing session directory: %w", err)
	}
	return nil
}
