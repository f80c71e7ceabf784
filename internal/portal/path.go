package portal

import (
	"io"
	"io/fs"
	"path/filepath"
)

// Path is a validated local file about to be uploaded, with cached metadata.
// Path objects are created by FilesystemManager.Resolve.
type Path struct {
	absPath string
	info    fs.FileInfo
	mime    string
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath string, info fs.FileInfo, mime string) *Path {
	return &Path{absPath: absPath, info: info, mime: mime}
}

// String returns the absolute path.
func (p *Path) String() string {
	return p.absPath
}

// Name returns the file name without directories.
func (p *Path) Name() string {
	return filepath.Base(p.absPath)
}

// Info returns the file info captured when the path was resolved.
func (p *Path) Info() fs.FileInfo {
	return p.info
}

// MIME returns the detected media type, e.g. "application/pdf".
func (p *Path) MIME() string {
	return p.mime
}

// FilesystemManager reads local files for upload.
type FilesystemManager interface {
	// Resolve validates rawPath as a readable regular file and detects its media type.
	Resolve(rawPath string) (*Path, error)

	// Open opens the file for reading.
	Open(path *Path) (io.ReadCloser, error)
}
