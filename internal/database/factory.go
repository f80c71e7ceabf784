package database

import (
	"fmt"
	"os"
	"path/filepath"

	"edusphere/internal/config"
	"edusphere/internal/portal"
)

// NewStorageFromConfig creates the SQLite-backed profile storage.
// type "sqlite" stores <data_dir>/<profile_id>.db; type "memory" uses an in-memory database.
func NewStorageFromConfig(cfg config.StorageConfig, profileID string, clock portal.Clock) (*SQLiteStorage, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite storage")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStorage(filepath.Join(cfg.DataDir, profileID+".db"), clock)
	case "memory":
		return NewSQLiteStorage(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown sqlite storage type: %s", cfg.Type)
	}
}
