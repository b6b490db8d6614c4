// Package config loads recall's configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding the config file.
const (
	// EnvCacheDir overrides the cache root directory.
	EnvCacheDir = "RECALL_CACHE_DIR"

	// EnvBackend selects the backend ("file" or "sqlite").
	EnvBackend = "RECALL_BACKEND"

	// EnvMaxAge overrides the default age threshold (duration string or
	// integer seconds).
	EnvMaxAge = "RECALL_MAX_AGE"

	// EnvLogLevel overrides the log level.
	EnvLogLevel = "RECALL_LOG_LEVEL"
)

// Backend names accepted in configuration.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultMaxAge is the age threshold applied when nothing else is
// configured (1 day).
const DefaultMaxAge = 24 * time.Hour

// ErrInvalidMaxAge indicates an age threshold that doesn't parse or is
// not positive.
var ErrInvalidMaxAge = errors.New("max age must be a positive duration")

// Config is the loaded configuration.
type Config struct {
	// CacheDir is the cache root directory. Empty means the platform
	// default (user cache dir).
	CacheDir string `yaml:"cache_dir"`

	// Backend selects the storage backend.
	Backend string `yaml:"backend"`

	// MaxAge is the default age threshold as a duration string.
	MaxAge string `yaml:"max_age"`

	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`
}

// DefaultPath returns the default config file location,
// ~/.recall/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".recall", "config.yaml"), nil
}

// Load reads the config file at path (a missing file yields defaults)
// and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Backend:  BackendFile,
		LogLevel: "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, unmarshalErr)
			}
		case os.IsNotExist(err):
			// Defaults apply.
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Backend != BackendFile && cfg.Backend != BackendSQLite {
		return nil, fmt.Errorf("unknown backend %q (want %q or %q)", cfg.Backend, BackendFile, BackendSQLite)
	}
	if cfg.MaxAge != "" {
		if _, err := ParseMaxAge(cfg.MaxAge); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvMaxAge); v != "" {
		cfg.MaxAge = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// ResolvedMaxAge returns the configured default age threshold, or
// DefaultMaxAge when unset.
func (c *Config) ResolvedMaxAge() time.Duration {
	if c.MaxAge == "" {
		return DefaultMaxAge
	}
	d, err := ParseMaxAge(c.MaxAge)
	if err != nil {
		return DefaultMaxAge
	}
	return d
}

// ParseMaxAge parses an age threshold in either format:
//   - integer seconds: "86400"
//   - duration string: "24h", "1h30m"
func ParseMaxAge(s string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("%w: got %d seconds", ErrInvalidMaxAge, seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxAge, s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidMaxAge, d)
	}
	return d, nil
}
