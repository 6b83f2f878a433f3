// Package config loads the settings for the gcsh command. Values come from,
// in increasing precedence: built-in defaults, an optional config file, a
// .env file and GCSH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tomasbasham/gcs-helpers/pkg/encode"
	"github.com/tomasbasham/gcs-helpers/pkg/retry"
	"github.com/tomasbasham/gcs-helpers/pkg/storage"
)

const envPrefix = "GCSH"

const (
	BackendGCS  = "gcs"
	BackendS3   = "s3"
	BackendDisk = "disk"
)

type Config struct {
	Backend string `mapstructure:"backend"`
	Project string `mapstructure:"project"`

	DefaultBucket      string `mapstructure:"default_bucket"`
	DefaultContentType string `mapstructure:"default_content_type"`
	ChunkSize          int    `mapstructure:"chunk_size"`
	TempDir            string `mapstructure:"temp_dir"`
	LogLevel           string `mapstructure:"log_level"`

	Retry RetryConfig `mapstructure:"retry"`
	Minio MinioConfig `mapstructure:"minio"`
	Disk  DiskConfig  `mapstructure:"disk"`
}

type RetryConfig struct {
	Multiplier  time.Duration `mapstructure:"multiplier"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`

	// MaxRetries is per request, inside each retry policy attempt.
	MaxRetries int `mapstructure:"max_retries"`
}

type DiskConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendGCS)
	v.SetDefault("project", "")
	v.SetDefault("default_bucket", "")
	v.SetDefault("default_content_type", encode.MimeJSON)
	v.SetDefault("chunk_size", storage.DefaultChunkSize)
	v.SetDefault("temp_dir", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("retry.multiplier", retry.DefaultMultiplier)
	v.SetDefault("retry.max_delay", retry.DefaultMaxDelay)
	v.SetDefault("retry.max_attempts", retry.DefaultMaxAttempts)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.use_ssl", true)
	v.SetDefault("minio.max_retries", 1)

	v.SetDefault("disk.base_dir", ".")
}

// Load builds a Config. path names an optional YAML, JSON or TOML file.
func Load(path string) (*Config, error) {
	// Load .env file if it exists.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGCS, BackendDisk:
	case BackendS3:
		if c.Minio.Endpoint == "" {
			return errors.New("config: minio.endpoint is required for the s3 backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 0 || c.Retry.MaxDelay < 0 {
		return errors.New("config: retry delays must not be negative")
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("config: chunk_size must not be negative, got %d", c.ChunkSize)
	}
	return nil
}

// Policy returns the retry policy described by the config. Retryable errors
// are classified by storage.IsRetryable.
func (c *Config) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		Delay:       retry.Exponential(c.Retry.Multiplier, c.Retry.MaxDelay),
		Retryable:   storage.IsRetryable,
	}
}
