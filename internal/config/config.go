package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config holds everything the deskchess process needs at startup.
// Values come from defaults, then an optional YAML file, then
// environment overrides, in that order.
type Config struct {
	Listen   string `yaml:"listen"`
	RedisURL string `yaml:"redis_url"`

	// TimeControls enumerates the selectable per-side budgets in whole
	// seconds. Selecting a new one resets the session.
	TimeControls       []int `yaml:"time_controls"`
	DefaultTimeControl int   `yaml:"default_time_control"`

	// SessionTTL bounds how long a live session snapshot survives in
	// the registry without an update.
	SessionTTLSec int `yaml:"session_ttl_sec"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaults() *Config {
	return &Config{
		Listen:             ":8430",
		TimeControls:       []int{600, 300, 60},
		DefaultTimeControl: 600,
		SessionTTLSec:      3600,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// Load reads the optional YAML file at path (empty path skips the
// file), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DESK_LISTEN")); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DESK_TIME_CONTROLS")); v != "" {
		var opts []int
		for _, p := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err == nil && n > 0 {
				opts = append(opts, n)
			}
		}
		if len(opts) > 0 {
			cfg.TimeControls = opts
		}
	}
	if v := strings.TrimSpace(os.Getenv("DESK_DEFAULT_TIME_CONTROL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultTimeControl = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DESK_SESSION_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen address is required")
	}
	if len(c.TimeControls) == 0 {
		return errors.New("at least one time control option is required")
	}
	for _, tc := range c.TimeControls {
		if tc <= 0 {
			return fmt.Errorf("time control must be positive, got %d", tc)
		}
	}
	if !c.AllowsTimeControl(c.DefaultTimeControl) {
		return fmt.Errorf("default time control %d is not among the configured options", c.DefaultTimeControl)
	}
	if c.SessionTTLSec <= 0 {
		return errors.New("session TTL must be positive")
	}
	return nil
}

// AllowsTimeControl reports whether seconds is one of the enumerated
// selector options.
func (c *Config) AllowsTimeControl(seconds int) bool {
	for _, tc := range c.TimeControls {
		if tc == seconds {
			return true
		}
	}
	return false
}

// SessionTTL returns the registry TTL as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}
