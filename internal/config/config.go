// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultDataDir returns the default directory for the WhatsApp session
// credentials. Uses ~/.wabridge/ so data is in a fixed location regardless
// of CWD.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".wabridge")
}

// Config holds all configuration for the bridge.
type Config struct {
	// HTTP
	HTTPPort       int      `mapstructure:"http_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Session
	SessionPath    string        `mapstructure:"session_path"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// Chat cache
	SyncInterval    time.Duration `mapstructure:"sync_interval"`
	SendResyncDelay time.Duration `mapstructure:"send_resync_delay"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTPPort: 3001,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
		SessionPath:     filepath.Join(defaultDataDir(), "session.db"),
		ConnectTimeout:  30 * time.Second,
		SyncInterval:    60 * time.Second,
		SendResyncDelay: 2 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadConfig loads configuration from file, environment, and defaults.
// Priority: Environment > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("http_port", defaults.HTTPPort)
	v.SetDefault("allowed_origins", defaults.AllowedOrigins)
	v.SetDefault("session_path", defaults.SessionPath)
	v.SetDefault("connect_timeout", defaults.ConnectTimeout)
	v.SetDefault("sync_interval", defaults.SyncInterval)
	v.SetDefault("send_resync_delay", defaults.SendResyncDelay)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	// Environment variables with WABRIDGE_ prefix
	v.SetEnvPrefix("WABRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Ignore if the default config.yaml simply doesn't exist — use
			// built-in defaults. Only fail on an unreadable explicit path.
			isNotFound := errors.Is(err, os.ErrNotExist)
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotFound {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d (must be 1-65535)", c.HTTPPort)
	}

	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}

	if c.SendResyncDelay < 0 {
		return fmt.Errorf("send resync delay must be non-negative")
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}

	if c.SessionPath == "" {
		return fmt.Errorf("session path is required")
	}

	return nil
}
