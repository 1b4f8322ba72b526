// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "TALIA_WEBCHAT_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for the public widget backend.
	Production Environment = "production"
)

// Storage drivers accepted in storage.driver.
var storageDrivers = []string{"memory", "file", "sqlite", "redis"}

// Config is the webchat client configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// ServerURL is the origin of the webchat backend, for example
	// "https://talia.example". Required when APIBaseURL is relative.
	ServerURL string `yaml:"server_url"`

	// APIBaseURL is the webchat API root. A relative value is joined
	// to ServerURL.
	// Default: /api/webchat
	APIBaseURL string `yaml:"api_base_url"`

	// StorageSessionKey is the key the session id is stored under.
	// Default: talia-webchat-session
	StorageSessionKey string `yaml:"storage_session_key"`

	// HistoryLimit is the page size of each history fetch.
	// Default: 100
	HistoryLimit int `yaml:"history_limit"`

	// HistoryInterval is the time between history polls.
	// Default: 4s
	HistoryInterval time.Duration `yaml:"history_interval"`

	// FallbackMessage is rendered when a send fails after every retry.
	// Empty uses the built-in Spanish message.
	FallbackMessage string `yaml:"fallback_message"`

	// AutoLifecycle pauses polling while the client is hidden and
	// closes the session after HiddenInactivityTimeout.
	// Default: true
	AutoLifecycle bool `yaml:"auto_lifecycle"`

	// HiddenInactivityTimeout is how long the client may stay hidden
	// before the session is closed. Zero disables the timeout.
	// Default: 45m
	HiddenInactivityTimeout time.Duration `yaml:"hidden_inactivity_timeout"`

	// Locale is sent with every message.
	// Default: es-MX
	Locale string `yaml:"locale"`

	// RetryDelays is the wait before each send retry.
	// Default: [1s, 2s]
	RetryDelays []time.Duration `yaml:"retry_delays"`

	// ScrollTolerance is how close to the bottom still counts as the
	// bottom, in view units.
	// Default: 160
	ScrollTolerance int `yaml:"scroll_tolerance"`

	// CloseTimeout bounds the closure notice.
	// Default: 5s
	CloseTimeout time.Duration `yaml:"close_timeout"`

	// Beacon allows the detached closure notice on shutdown.
	// Default: true
	Beacon bool `yaml:"beacon"`

	// Storage configures where the session id is persisted.
	Storage StorageConfig `yaml:"storage"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// StorageConfig selects the session store.
type StorageConfig struct {
	// Driver is one of memory, file, sqlite, redis.
	// Default: file
	Driver string `yaml:"driver"`

	// Path is the state file for the file and sqlite drivers. ${HOME}
	// and ${VAR:-default} are expanded.
	Path string `yaml:"path"`

	// RedisAddr is host:port for the redis driver.
	RedisAddr string `yaml:"redis_addr"`

	// RedisDB is the redis database number.
	RedisDB int `yaml:"redis_db"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	ServerURL       string         `yaml:"server_url,omitempty"`
	APIBaseURL      string         `yaml:"api_base_url,omitempty"`
	HistoryInterval time.Duration  `yaml:"history_interval,omitempty"`
	Beacon          *bool          `yaml:"beacon,omitempty"`
	Storage         *StorageConfig `yaml:"storage,omitempty"`
}

// Default returns the default configuration, which loading merges the
// file into.
func Default() *Config {
	return &Config{
		Environment:             Development,
		APIBaseURL:              "/api/webchat",
		StorageSessionKey:       "talia-webchat-session",
		HistoryLimit:            100,
		HistoryInterval:         4 * time.Second,
		AutoLifecycle:           true,
		HiddenInactivityTimeout: 45 * time.Minute,
		Locale:                  "es-MX",
		RetryDelays:             []time.Duration{time.Second, 2 * time.Second},
		ScrollTolerance:         160,
		CloseTimeout:            5 * time.Second,
		Beacon:                  true,
		Storage: StorageConfig{
			Driver: "file",
			Path:   filepath.Join("${XDG_STATE_HOME:-${HOME}/.local/state}", "talia-webchat", "session.cbor"),
		},
	}
}

// Load loads configuration from the file named by TALIA_WEBCHAT_CONFIG.
// There is no fallback: if the variable is unset, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your webchat config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path. Files ending in .json or
// .jsonc are read as JSON with comments and trailing commas; anything
// else is YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// Parse decodes configuration from data on top of the defaults. format
// is "yaml" or "jsonc".
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data, format); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	format := "yaml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		format = "jsonc"
	}
	if err := c.decode(data, format); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Config) decode(data []byte, format string) error {
	switch format {
	case "yaml":
	case "jsonc":
		// Compact JSON is valid YAML, so the stripped document goes
		// through the same decoder and gets the same duration handling.
		var compact bytes.Buffer
		if err := json.Compact(&compact, jsonc.ToJSON(data)); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		data = compact.Bytes()
	default:
		return fmt.Errorf("unknown config format %q", format)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.ServerURL != "" {
		c.ServerURL = overrides.ServerURL
	}
	if overrides.APIBaseURL != "" {
		c.APIBaseURL = overrides.APIBaseURL
	}
	if overrides.HistoryInterval != 0 {
		c.HistoryInterval = overrides.HistoryInterval
	}
	if overrides.Beacon != nil {
		c.Beacon = *overrides.Beacon
	}
	if overrides.Storage != nil {
		if overrides.Storage.Driver != "" {
			c.Storage.Driver = overrides.Storage.Driver
		}
		if overrides.Storage.Path != "" {
			c.Storage.Path = overrides.Storage.Path
		}
		if overrides.Storage.RedisAddr != "" {
			c.Storage.RedisAddr = overrides.Storage.RedisAddr
		}
		if overrides.Storage.RedisDB != 0 {
			c.Storage.RedisDB = overrides.Storage.RedisDB
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in the fields
// that hold paths or addresses.
func (c *Config) expandVariables() {
	c.Storage.Path = expandVars(c.Storage.Path)
	c.Storage.RedisAddr = expandVars(c.Storage.RedisAddr)
	c.ServerURL = expandVars(c.ServerURL)
}

// varPattern matches the innermost ${VAR} or ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^{}]*))?\}`)

// expandVars expands variables from the environment. Defaults may
// themselves contain variables, so expansion repeats until nothing
// changes.
func expandVars(s string) string {
	for range 8 {
		expanded := varPattern.ReplaceAllStringFunc(s, func(match string) string {
			parts := varPattern.FindStringSubmatch(match)
			if value := os.Getenv(parts[1]); value != "" {
				return value
			}
			return parts[2]
		})
		if expanded == s {
			return s
		}
		s = expanded
	}
	return s
}

// ResolveAPIBaseURL returns the absolute API root: APIBaseURL as is
// when it is absolute, otherwise joined to ServerURL. The result has
// no trailing slash.
func (c *Config) ResolveAPIBaseURL() (string, error) {
	base, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("api_base_url: %w", err)
	}
	if base.IsAbs() {
		return strings.TrimRight(base.String(), "/"), nil
	}
	if c.ServerURL == "" {
		return "", fmt.Errorf("api_base_url %q is relative and server_url is not set", c.APIBaseURL)
	}
	server, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("server_url: %w", err)
	}
	if !server.IsAbs() || server.Host == "" {
		return "", fmt.Errorf("server_url %q must be an absolute URL", c.ServerURL)
	}
	return strings.TrimRight(server.ResolveReference(base).String(), "/"), nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if _, err := c.ResolveAPIBaseURL(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.StorageSessionKey) == "" {
		errs = append(errs, fmt.Errorf("storage_session_key is required"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit))
	}
	if c.HistoryInterval <= 0 {
		errs = append(errs, fmt.Errorf("history_interval must be positive, got %s", c.HistoryInterval))
	}
	if c.HiddenInactivityTimeout < 0 {
		errs = append(errs, fmt.Errorf("hidden_inactivity_timeout must not be negative"))
	}
	for i, delay := range c.RetryDelays {
		if delay < 0 {
			errs = append(errs, fmt.Errorf("retry_delays[%d] must not be negative", i))
		}
	}
	if c.ScrollTolerance < 0 {
		errs = append(errs, fmt.Errorf("scroll_tolerance must not be negative"))
	}
	if c.CloseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("close_timeout must be positive"))
	}
	if c.Locale == "" {
		errs = append(errs, fmt.Errorf("locale is required"))
	}

	if !slices.Contains(storageDrivers, c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver must be one of: %v", storageDrivers))
	}
	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver))
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("storage.redis_addr is required for the redis driver"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
