package gemini

import (
	"fmt"

	"edusphere/internal/config"
	"edusphere/internal/portal"
)

// NewGeneratorFromConfig creates the content generator the config names.
// It returns nil and no error when generation is disabled.
func NewGeneratorFromConfig(cfg config.GenerationConfig, logger portal.Logger) (portal.Generator, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "gemini":
		client, err := NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generation type: %q", cfg.Type)
	}
}
