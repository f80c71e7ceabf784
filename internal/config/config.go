package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for edusphere.
type Config struct {
	ProfileID  string           `toml:"profile_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Storage    StorageConfig    `toml:"storage"`
	Session    SessionConfig    `toml:"session"`
	Gate       GateConfig       `toml:"gate"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Generation GenerationConfig `toml:"generation"`
	Server     ServerConfig     `toml:"server"`
}

// StorageConfig selects the profile key-value store that holds local edits.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type    string `toml:"type"`               // "file" (default), "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=file and type=sqlite
}

// SessionConfig controls where uploaded files are held while the process runs.
type SessionConfig struct {
	Type    string `toml:"type"`          // "memory" (default) or "filesystem"
	Dir     string `toml:"dir,omitempty"` // only used for type=filesystem; removed on exit
	MaxSize int64  `toml:"max_size"`      // max total size in bytes; defaults to 64MB
}

// GateConfig holds the admin passcode hash (bcrypt). An empty hash disables login.
type GateConfig struct {
	PasscodeHash string `toml:"passcode_hash"`
}

// EncryptionConfig holds paths to the age key pair used for published catalogs.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	Armor          bool   `toml:"armor"` // PEM-style ASCII output, safe to paste into a review
}

// VaultConfig represents configuration for a publish destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores; enables path-style addressing

	// Static S3 credentials; when empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// GenerationConfig configures the content generation service.
type GenerationConfig struct {
	Type                string `toml:"type"` // "none" (default) or "gemini"
	APIKey              string `toml:"api_key,omitempty"`
	BaseURL             string `toml:"base_url,omitempty"`
	TextModel           string `toml:"text_model,omitempty"`
	SpeechModel         string `toml:"speech_model,omitempty"`
	VideoModel          string `toml:"video_model,omitempty"`
	Voice               string `toml:"voice,omitempty"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds,omitempty"`
	TimeoutSeconds      int    `toml:"timeout_seconds,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string `toml:"addr"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(profileID, baseDir string) *Config {
	return &Config{
		ProfileID: profileID,
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		Storage: StorageConfig{
			Type:    "file",
			DataDir: filepath.Join(baseDir, "profile"),
		},
		Session: SessionConfig{Type: "memory"},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "edusphere.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "edusphere.key"),
		},
		Generation: GenerationConfig{Type: "none"},
		Server:     ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// The file may end up holding an API key, so it is created owner-only.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
