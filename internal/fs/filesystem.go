package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"edusphere/internal/portal"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*portal.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode.IsDir() {
		return nil, fmt.Errorf("directories cannot be uploaded: %s", absPath)
	}
	if !mode.IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	mtype, err := mimetype.DetectFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("detecting media type: %w", err)
	}

	return portal.NewPath(absPath, info, mtype.String()), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *portal.Path) (io.ReadCloser, error) {
	return os.Open(path.String())
}

// sniffLen is how much of a stream is read to detect its media type.
const sniffLen = 3072

// DetectMIME sniffs the media type of a stream, e.g. an HTTP upload.
// The returned reader yields the full content, including the sniffed prefix.
func DetectMIME(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("reading content: %w", err)
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// Compile-time check that OSFilesystemManager implements portal.FilesystemManager interface
var _ portal.FilesystemManager = (*OSFilesystemManager)(nil)
