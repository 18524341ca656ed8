// Package config reads and writes the wmguard TOML configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for wmguard.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Catalog    CatalogConfig    `toml:"catalog"`
	BlobStore  BlobStoreConfig  `toml:"blobstore"`
	Oracle     OracleConfig     `toml:"oracle"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// CatalogConfig configures the asset catalog.
// Tagged union: Type selects which other fields apply.
type CatalogConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BlobStoreConfig configures the blob storage backend.
// Tagged union: Type selects which other fields apply.
type BlobStoreConfig struct {
	Type string `toml:"type"` // "s3", "filesystem", or "memory"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"` // optional custom endpoint
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// OracleConfig configures the watermark oracle client.
type OracleConfig struct {
	BaseURL string `toml:"base_url"`
	// Timeout is the wall-clock ceiling per oracle call.
	Timeout duration `toml:"timeout"`
	// ExtractThreshold is the detection-confidence threshold sent with
	// extract requests.
	ExtractThreshold float64 `toml:"extract_threshold"`
}

// TimeoutOrDefault returns the configured timeout, or 30s when unset.
func (o OracleConfig) TimeoutOrDefault() time.Duration {
	if o.Timeout.Duration <= 0 {
		return 30 * time.Second
	}
	return o.Timeout.Duration
}

// EncryptionConfig holds paths to the age key pair protecting pristine
// blob copies at rest.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test", or "none"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// duration wraps time.Duration for TOML ("30s", "2m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig creates a Config with sensible defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		BlobStore: BlobStoreConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "blobs"),
		},
		Oracle: OracleConfig{
			BaseURL:          "http://localhost:8500",
			Timeout:          duration{30 * time.Second},
			ExtractThreshold: 0.5,
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "wmguard.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "wmguard.key"),
		},
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

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at the specified path.
func Save(path string, cfg *Config) error {
	return writeToFile(path, cfg)
}
