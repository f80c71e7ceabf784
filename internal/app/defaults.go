package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the locations edusphere uses when the config does not say otherwise.
type Paths struct {
	ConfigFile string
	BaseDir    string
	LogDir     string
}

// DefaultPaths resolves Paths from the environment. For each location the
// first set variable wins:
//
//	config file  EDUSPHERE_CONFIG_PATH, $XDG_CONFIG_HOME/edusphere.toml, ~/.config/edusphere.toml
//	base dir     EDUSPHERE_HOME, $XDG_DATA_HOME/edusphere, ~/.local/share/edusphere
//
// The home directory is only looked up when a fallback needs it.
func DefaultPaths() (Paths, error) {
	configFile, err := resolvePath("EDUSPHERE_CONFIG_PATH", "XDG_CONFIG_HOME", "edusphere.toml", ".config")
	if err != nil {
		return Paths{}, fmt.Errorf("resolving config path: %w", err)
	}
	baseDir, err := resolvePath("EDUSPHERE_HOME", "XDG_DATA_HOME", "edusphere", ".local", "share")
	if err != nil {
		return Paths{}, fmt.Errorf("resolving base directory: %w", err)
	}
	return Paths{
		ConfigFile: configFile,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// resolvePath returns $override, else $xdg/name, else ~/homeRel.../name.
// Relative XDG values are ignored, as XDG base directories must be absolute.
func resolvePath(override, xdg, name string, homeRel ...string) (string, error) {
	if p := os.Getenv(override); p != "" {
		return p, nil
	}
	if dir := os.Getenv(xdg); filepath.IsAbs(dir) {
		return filepath.Join(dir, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{home}, homeRel...), name)...), nil
}
