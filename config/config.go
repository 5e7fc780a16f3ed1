// Package config holds framework defaults loaded from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all framework configuration.
type Config struct {
	Mailbox MailboxConfig
	Utility UtilityConfig
	Logging LogConfig
}

// MailboxConfig sizes element mailboxes.
type MailboxConfig struct {
	Capacity uint64 `envconfig:"FLOWGRAPH_MAILBOX_CAP" default:"100"`
}

// UtilityConfig governs utility scope teardown.
type UtilityConfig struct {
	GracePeriod time.Duration `envconfig:"FLOWGRAPH_UTILITY_GRACE" default:"5s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"FLOWGRAPH_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"FLOWGRAPH_LOG_DEV" default:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment, falling back
// to defaults on error.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in defaults without touching the
// environment.
func Default() *Config {
	return &Config{
		Mailbox: MailboxConfig{Capacity: 100},
		Utility: UtilityConfig{GracePeriod: 5 * time.Second},
		Logging: LogConfig{Level: "info"},
	}
}
