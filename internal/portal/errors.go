package portal

import "errors"

var (
	// ErrNotFound is returned when a subject, folder, material or resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotPrivileged is returned by the outer surfaces when a mutation is attempted
	// without the admin flag. The Repository itself never returns it.
	ErrNotPrivileged = errors.New("admin mode required")

	// ErrConfirmationRequired is returned when a destructive action was not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrStorageFull is returned when an upload would exceed the session size cap.
	ErrStorageFull = errors.New("session storage full")
)
