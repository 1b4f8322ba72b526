// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.APIBaseURL != "/api/webchat" {
		t.Errorf("expected api_base_url=/api/webchat, got %s", cfg.APIBaseURL)
	}
	if cfg.HistoryLimit != 100 {
		t.Errorf("expected history_limit=100, got %d", cfg.HistoryLimit)
	}
	if cfg.HistoryInterval != 4*time.Second {
		t.Errorf("expected history_interval=4s, got %s", cfg.HistoryInterval)
	}
	if cfg.HiddenInactivityTimeout != 45*time.Minute {
		t.Errorf("expected hidden_inactivity_timeout=45m, got %s", cfg.HiddenInactivityTimeout)
	}
	if !slices.Equal(cfg.RetryDelays, []time.Duration{time.Second, 2 * time.Second}) {
		t.Errorf("expected retry_delays=[1s 2s], got %v", cfg.RetryDelays)
	}
	if cfg.Locale != "es-MX" {
		t.Errorf("expected locale=es-MX, got %s", cfg.Locale)
	}
	if !cfg.AutoLifecycle || !cfg.Beacon {
		t.Error("expected auto_lifecycle and beacon enabled by default")
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("expected storage.driver=file, got %s", cfg.Storage.Driver)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when %s not set, got nil", EnvironmentVariable)
	}

	expectedMsg := EnvironmentVariable + " environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "webchat.yaml")

	configContent := `
server_url: https://talia.example
history_interval: 2s
retry_delays: [500ms, 1s, 3s]
locale: en-US
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ServerURL != "https://talia.example" {
		t.Errorf("expected server_url from file, got %s", cfg.ServerURL)
	}
	if cfg.HistoryInterval != 2*time.Second {
		t.Errorf("expected history_interval=2s, got %s", cfg.HistoryInterval)
	}
	if !slices.Equal(cfg.RetryDelays, []time.Duration{500 * time.Millisecond, time.Second, 3 * time.Second}) {
		t.Errorf("expected three retry delays, got %v", cfg.RetryDelays)
	}
	if cfg.Locale != "en-US" {
		t.Errorf("expected locale=en-US, got %s", cfg.Locale)
	}
	// Unset fields keep their defaults.
	if cfg.HistoryLimit != 100 {
		t.Errorf("expected default history_limit=100, got %d", cfg.HistoryLimit)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "webchat.jsonc")

	configContent := `{
	// Staging backend.
	"server_url": "https://staging.talia.example",
	"history_limit": 50,
	"hidden_inactivity_timeout": "10m",
	"storage": {"driver": "memory"}, // trailing comma below
}`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.ServerURL != "https://staging.talia.example" {
		t.Errorf("expected server_url from file, got %s", cfg.ServerURL)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("expected history_limit=50, got %d", cfg.HistoryLimit)
	}
	if cfg.HiddenInactivityTimeout != 10*time.Minute {
		t.Errorf("expected hidden_inactivity_timeout=10m, got %s", cfg.HiddenInactivityTimeout)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected storage.driver=memory, got %s", cfg.Storage.Driver)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "webchat.yaml")
	if err := os.WriteFile(configPath, []byte("history_limit: [not, a, number]\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), configPath) {
		t.Errorf("expected error to name the file, got %q", err.Error())
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	if _, err := Parse([]byte("{}"), "toml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configContent := `
environment: production
server_url: http://localhost:8080
beacon: true

development:
  server_url: http://localhost:9090

production:
  server_url: https://talia.example
  history_interval: 10s
  beacon: false
  storage:
    driver: redis
    redis_addr: redis.internal:6379
`
	cfg, err := Parse([]byte(configContent), "yaml")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.ServerURL != "https://talia.example" {
		t.Errorf("expected production server_url, got %s", cfg.ServerURL)
	}
	if cfg.HistoryInterval != 10*time.Second {
		t.Errorf("expected production history_interval=10s, got %s", cfg.HistoryInterval)
	}
	if cfg.Beacon {
		t.Error("expected production override to disable beacon")
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.RedisAddr != "redis.internal:6379" {
		t.Errorf("expected production redis storage, got %+v", cfg.Storage)
	}
	// The path from the defaults survives a partial storage override.
	if cfg.Storage.Path == "" {
		t.Error("expected storage.path to keep its default")
	}
}

func TestEnvironmentOverrides_DevelopmentSectionIgnoredInProduction(t *testing.T) {
	configContent := `
environment: production
server_url: https://talia.example
development:
  server_url: http://localhost:9090
`
	cfg, err := Parse([]byte(configContent), "yaml")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.ServerURL != "https://talia.example" {
		t.Errorf("expected base server_url, got %s", cfg.ServerURL)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("WEBCHAT_TEST_HOME", "/home/talia")
	t.Setenv("WEBCHAT_TEST_EMPTY", "")

	tests := []struct {
		input    string
		expected string
	}{
		{"/plain/path", "/plain/path"},
		{"${WEBCHAT_TEST_HOME}/state", "/home/talia/state"},
		{"${WEBCHAT_TEST_UNSET:-/fallback}/state", "/fallback/state"},
		{"${WEBCHAT_TEST_EMPTY:-/fallback}", "/fallback"},
		{"${WEBCHAT_TEST_UNSET:-${WEBCHAT_TEST_HOME}/.local/state}/x", "/home/talia/.local/state/x"},
		{"${WEBCHAT_TEST_UNSET}", ""},
	}

	for _, test := range tests {
		got := expandVars(test.input)
		if got != test.expected {
			t.Errorf("expandVars(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestDefaultStoragePathExpands(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/talia")

	cfg, err := Parse([]byte("server_url: https://talia.example\n"), "yaml")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	expected := "/home/talia/.local/state/talia-webchat/session.cbor"
	if cfg.Storage.Path != expected {
		t.Errorf("expected storage.path=%s, got %s", expected, cfg.Storage.Path)
	}
}

func TestResolveAPIBaseURL(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		apiBase   string
		expected  string
		wantErr   bool
	}{
		{"relative joined", "https://talia.example", "/api/webchat", "https://talia.example/api/webchat", false},
		{"trailing slash trimmed", "https://talia.example/", "/api/webchat/", "https://talia.example/api/webchat", false},
		{"absolute api base", "", "https://api.talia.example/webchat", "https://api.talia.example/webchat", false},
		{"relative without server", "", "/api/webchat", "", true},
		{"server without scheme", "talia.example", "/api/webchat", "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.ServerURL = test.serverURL
			cfg.APIBaseURL = test.apiBase

			got, err := cfg.ResolveAPIBaseURL()
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveAPIBaseURL() failed: %v", err)
			}
			if got != test.expected {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.ServerURL = "https://talia.example"
		cfg.Storage.Path = "/tmp/session.cbor"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"no server", func(c *Config) { c.ServerURL = "" }, "server_url is not set"},
		{"blank storage key", func(c *Config) { c.StorageSessionKey = "  " }, "storage_session_key"},
		{"zero history limit", func(c *Config) { c.HistoryLimit = 0 }, "history_limit"},
		{"zero interval", func(c *Config) { c.HistoryInterval = 0 }, "history_interval"},
		{"negative hidden timeout", func(c *Config) { c.HiddenInactivityTimeout = -time.Second }, "hidden_inactivity_timeout"},
		{"negative retry delay", func(c *Config) { c.RetryDelays = []time.Duration{time.Second, -1} }, "retry_delays[1]"},
		{"negative tolerance", func(c *Config) { c.ScrollTolerance = -1 }, "scroll_tolerance"},
		{"zero close timeout", func(c *Config) { c.CloseTimeout = 0 }, "close_timeout"},
		{"empty locale", func(c *Config) { c.Locale = "" }, "locale"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "etcd" }, "storage.driver"},
		{"file without path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"redis without addr", func(c *Config) { c.Storage.Driver = "redis" }, "storage.redis_addr"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantMsg) {
				t.Errorf("expected error containing %q, got %q", test.wantMsg, err.Error())
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.HistoryLimit = -1
	cfg.Locale = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server_url", "history_limit", "locale"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected joined error to mention %s, got %q", want, err.Error())
		}
	}
}
