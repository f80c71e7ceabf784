package session

import "io"

// blobStore abstracts where uploaded content is kept for the life of a session.
// Concurrency is managed by the caller (Registry.mu), so stores do not need to
// be safe for concurrent use.
type blobStore interface {
	// StoreContent reads from r, computes SHA-256, and stores content.
	// Deduplicates if checksum already exists. Returns checksum and size.
	StoreContent(r io.Reader) (checksum string, size int64, err error)

	// RemoveContent removes stored content by checksum (best-effort).
	RemoveContent(checksum string)

	// OpenContent returns a reader for stored content by checksum.
	OpenContent(checksum string) (io.ReadCloser, error)

	// ContentSize returns total bytes of all stored content.
	ContentSize() int64

	// Close discards everything the store holds.
	Close() error
}
