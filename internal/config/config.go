// Package config reads and writes the client configuration at
// ~/.courier/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	defaultSearchDebounceMs = 500
	defaultUnreadClearMs    = 4000
	defaultRequestTimeoutMs = 10000
)

// Config is the persisted client configuration.
type Config struct {
	APIBaseURL string `toml:"api_base_url" validate:"required,url"`
	Username   string `toml:"username"`
	AuthToken  string `toml:"auth_token"`

	SearchDebounceMs int `toml:"search_debounce_ms" validate:"gte=0"`
	UnreadClearMs    int `toml:"unread_clear_ms" validate:"gte=0"`
	RequestTimeoutMs int `toml:"request_timeout_ms" validate:"gte=0"`
}

// Default returns a config with every tunable at its default.
func Default() *Config {
	return &Config{
		APIBaseURL:       "http://localhost:8000/api",
		SearchDebounceMs: defaultSearchDebounceMs,
		UnreadClearMs:    defaultUnreadClearMs,
		RequestTimeoutMs: defaultRequestTimeoutMs,
	}
}

// Load reads config from path, fills unset timers with defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.SearchDebounceMs == 0 {
		cfg.SearchDebounceMs = defaultSearchDebounceMs
	}
	if cfg.UnreadClearMs == 0 {
		cfg.UnreadClearMs = defaultUnreadClearMs
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = defaultRequestTimeoutMs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks the config's structural constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SearchDebounce returns the debounce window as a duration.
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

// UnreadClearDelay returns the unread dwell delay as a duration.
func (c *Config) UnreadClearDelay() time.Duration {
	return time.Duration(c.UnreadClearMs) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// StateDir returns the directory holding config, logs, and the
// instance lock (~/.courier).
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".courier")
	}
	return filepath.Join(home, ".courier")
}

// DefaultPath returns ~/.courier/config.toml.
func DefaultPath() string {
	return filepath.Join(StateDir(), "config.toml")
}

// LogPath returns ~/.courier/courier.log.
func LogPath() string {
	return filepath.Join(StateDir(), "courier.log")
}
