package portal

// Storage is the key-value store scoped to one profile (the "browser profile").
// It holds the local edit document and the access gate flag.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the value stored under key.
	// Returns nil and no error if the key does not exist.
	Get(key string) ([]byte, error)

	// Put overwrites the value stored under key.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Storage keys. These must stay stable across releases; renames need a migration
// in LocalEditStore.
const (
	KeyEdits           = "edusphere.edits.v2"
	KeyAdmin           = "edusphere.admin"
	LegacyKeyFolders   = "edusphere_folders"
	LegacyKeyMaterials = "edusphere_materials"
)
