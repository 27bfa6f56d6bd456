package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	File      string          `envconfig:"CONFIG_FILE" yaml:"-" toml:"-"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Transfer  TransferConfig  `yaml:"transfer" toml:"transfer"`
	Archive   ArchiveConfig   `yaml:"archive" toml:"archive"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host            string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`
	StaticDir       string `envconfig:"STATIC_DIR" yaml:"static_dir" toml:"static_dir"`
	ShutdownSeconds int    `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"10" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`
}

// StorageConfig describes the confinement root and listing behaviour.
type StorageConfig struct {
	Root            string   `envconfig:"STORAGE_ROOT" default:"./uploads" yaml:"root" toml:"root"`
	CreateRoot      bool     `envconfig:"STORAGE_CREATE_ROOT" default:"true" yaml:"create_root" toml:"create_root"`
	TempDir         string   `envconfig:"TEMP_DIR" yaml:"temp_dir" toml:"temp_dir"`
	ExcludePatterns []string `envconfig:"EXCLUDE_PATTERNS" yaml:"exclude_patterns" toml:"exclude_patterns"`
	CollationLocale string   `envconfig:"COLLATION_LOCALE" default:"ru" yaml:"collation_locale" toml:"collation_locale"`
}

// TransferConfig holds upload and download limits. Zero sizes mean unlimited.
type TransferConfig struct {
	MaxUploadSize     int64 `envconfig:"MAX_UPLOAD_SIZE" default:"0" yaml:"max_upload_size" toml:"max_upload_size"`
	MaxUploadFileSize int64 `envconfig:"MAX_UPLOAD_FILE_SIZE" default:"0" yaml:"max_upload_file_size" toml:"max_upload_file_size"`
	MultipartMemory   int64 `envconfig:"MULTIPART_MEMORY" default:"33554432" yaml:"multipart_memory" toml:"multipart_memory"`
	ChunkSize         int   `envconfig:"DOWNLOAD_CHUNK_SIZE" default:"8192" yaml:"download_chunk_size" toml:"download_chunk_size"`
}

// ArchiveConfig holds archive builder settings.
type ArchiveConfig struct {
	TarEnabled bool `envconfig:"ARCHIVE_TAR_ENABLED" default:"true" yaml:"tar_enabled" toml:"tar_enabled"`
	MaxDepth   int  `envconfig:"ARCHIVE_MAX_DEPTH" default:"64" yaml:"max_depth" toml:"max_depth"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string   `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool     `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
	Output      []string `envconfig:"LOG_OUTPUT" default:"stdout" yaml:"output" toml:"output"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`

	// GlobalRequestsPerSecond caps all clients together. Zero disables it.
	GlobalRequestsPerSecond int `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"0" yaml:"global_requests_per_second" toml:"global_requests_per_second"`
	GlobalBurst             int `envconfig:"RATE_LIMIT_GLOBAL_BURST" default:"0" yaml:"global_burst" toml:"global_burst"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Load loads configuration from environment variables, then applies the
// file named by CONFIG_FILE on top when one is set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.File != "" {
		if err := LoadFile(cfg.File, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile decodes a YAML or TOML file into cfg. Keys absent from the file
// leave the existing values untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Storage.Root) == "" {
		errs = append(errs, errors.New("storage root must not be empty"))
	}
	if c.Transfer.ChunkSize <= 0 {
		errs = append(errs, errors.New("download chunk size must be positive"))
	}
	if c.Transfer.MaxUploadSize < 0 || c.Transfer.MaxUploadFileSize < 0 {
		errs = append(errs, errors.New("upload size limits must not be negative"))
	}
	if c.Archive.MaxDepth <= 0 {
		errs = append(errs, errors.New("archive max depth must be positive"))
	}
	if c.RateLimit.GlobalRequestsPerSecond < 0 || c.RateLimit.GlobalBurst < 0 {
		errs = append(errs, errors.New("global rate limit must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// TempDir returns the staging directory for temporary archives.
func (c *Config) TempDir() string {
	if c.Storage.TempDir != "" {
		return c.Storage.TempDir
	}
	return os.TempDir()
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownSeconds: 10,
		},
		Storage: StorageConfig{
			Root:            "./uploads",
			CreateRoot:      true,
			CollationLocale: "ru",
		},
		Transfer: TransferConfig{
			MultipartMemory: 32 << 20,
			ChunkSize:       8192,
		},
		Archive: ArchiveConfig{
			TarEnabled: true,
			MaxDepth:   64,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			Output:      []string{"stdout"},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
