package storage

import (
	"fmt"
	"path/filepath"

	"edusphere/internal/config"
	"edusphere/internal/database"
	"edusphere/internal/portal"
)

// NewStorageFromConfig creates the profile Storage selected by cfg.Type.
func NewStorageFromConfig(cfg config.StorageConfig, profileID string, clock portal.Clock) (portal.Storage, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(), nil
	case "file", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for file storage")
		}
		return NewFileStorage(filepath.Join(cfg.DataDir, profileID+".json"))
	case "sqlite":
		s, err := database.NewStorageFromConfig(cfg, profileID, clock)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
