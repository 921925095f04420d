// Package config provides configuration for the addon store client. Settings
// come from a YAML file with sensible defaults and can be overridden through
// ADDONSTORE_* environment variables.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/cwillem/addonstore/pkg/errors"
)

// Default configuration values.
const (
	// DefaultBaseURL is the store server queried when no other is configured.
	DefaultBaseURL = "https://store.addonhub.dev"

	// DefaultMaxParallel is the size of the download worker pool.
	DefaultMaxParallel = 10

	// DefaultChunkSize is the streaming read size. Small enough that a
	// cancellation is noticed promptly on a slow link, large enough that
	// per-chunk bookkeeping does not dominate throughput.
	DefaultChunkSize = 128 * 1024

	// DefaultHTTPTimeout bounds one whole GET. Packages can be large and
	// links slow (1 GiB at 0.5 MiB/s runs for hours), so the ceiling is
	// sized in hours, not seconds.
	DefaultHTTPTimeout = 6 * time.Hour

	envPrefix = "addonstore"
)

// Duration is a time.Duration that parses human-readable values like "90s"
// or "6h" from both YAML files and environment variables.
type Duration time.Duration

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.Decode(value.Value)
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the application configuration.
type Config struct {
	// BaseURL is the addon store server.
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL"`

	// CacheDir holds verified downloads; TempDir holds in-progress files.
	CacheDir string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
	TempDir  string `yaml:"temp_dir" envconfig:"TEMP_DIR"`

	// MaxParallel is the number of concurrent downloads.
	MaxParallel int `yaml:"max_parallel_downloads" envconfig:"MAX_PARALLEL"`

	// ChunkSize is the streaming read size in bytes.
	ChunkSize int `yaml:"chunk_size" envconfig:"CHUNK_SIZE"`

	// HTTPTimeout is the ceiling for one whole download request.
	HTTPTimeout Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`

	// ReadOnly disables all writes to persistent storage (portable mode).
	// With ReadOnly set every download short-circuits as cancelled.
	ReadOnly bool `yaml:"read_only" envconfig:"READ_ONLY"`

	// LogLevel is one of error, warn, info, debug.
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	baseDir, err := os.UserCacheDir()
	if err != nil {
		baseDir = "."
	}
	appDir := filepath.Join(baseDir, "addonstore")

	return &Config{
		BaseURL:     DefaultBaseURL,
		CacheDir:    filepath.Join(appDir, "addons"),
		TempDir:     filepath.Join(appDir, "downloads"),
		MaxParallel: DefaultMaxParallel,
		ChunkSize:   DefaultChunkSize,
		HTTPTimeout: Duration(DefaultHTTPTimeout),
		LogLevel:    "info",
	}
}

// Load reads the configuration file at path, falling back to defaults when
// path is empty or the file does not exist, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "failed to open config file: %s", path)
			}
		} else {
			defer func() { _ = file.Close() }()
			if err := decodeInto(cfg, file); err != nil {
				return nil, err
			}
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to apply environment overrides")
	}

	return cfg, cfg.validate()
}

// LoadFromReader reads YAML configuration from reader on top of defaults.
// Environment overrides are not applied.
func LoadFromReader(reader io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := decodeInto(cfg, reader); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func decodeInto(cfg *Config, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return errors.Wrap(err, "failed to read config data")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	return nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errors.Wrap(errors.ErrConfigParse, "base_url cannot be empty")
	}
	if c.MaxParallel <= 0 {
		return errors.Wrap(errors.ErrConfigParse, "max_parallel_downloads must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.Wrap(errors.ErrConfigParse, "chunk_size must be positive")
	}
	return nil
}
