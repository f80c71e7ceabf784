package session

import (
	"fmt"

	"edusphere/internal/config"
)

// DefaultMaxSize is the default maximum upload total per session (64MB).
const DefaultMaxSize int64 = 64 * 1024 * 1024

// NewRegistryFromConfig creates a Registry backed by the store the config names.
func NewRegistryFromConfig(cfg config.SessionConfig, sessionID string) (*Registry, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch cfg.Type {
	case "memory", "":
		return NewMemoryRegistry(sessionID, maxSize), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem session store requires dir to be set")
		}
		return NewFileSystemRegistry(sessionID, cfg.Dir, maxSize)
	default:
		return nil, fmt.Errorf("unknown session store type: %s", cfg.Type)
	}
}
