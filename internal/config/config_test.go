package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DatabasePath != "./campuscrawl.db" {
		t.Errorf("Expected database path './campuscrawl.db', got %s", cfg.DatabasePath)
	}

	if cfg.Domain != "gtu.edu.tr" {
		t.Errorf("Expected domain gtu.edu.tr, got %s", cfg.Domain)
	}

	if cfg.Fetch.Timeout != 20*time.Second {
		t.Errorf("Expected fetch timeout 20s, got %v", cfg.Fetch.Timeout)
	}

	if cfg.Fetch.StaticAttempts != 3 || cfg.Fetch.BrowserAttempts != 3 {
		t.Errorf("Expected 3 attempts per tier, got %d/%d", cfg.Fetch.StaticAttempts, cfg.Fetch.BrowserAttempts)
	}

	if !cfg.Fetch.BrowserEnabled {
		t.Error("Expected browser tier enabled by default")
	}

	if cfg.Fetch.CacheTTL != 10*time.Minute {
		t.Errorf("Expected cache TTL 10m, got %v", cfg.Fetch.CacheTTL)
	}

	if cfg.Crawl.MaxDepth != 2 || cfg.Crawl.MaxPages != 50 {
		t.Errorf("Expected crawl depth 2 and 50 pages, got %d/%d", cfg.Crawl.MaxDepth, cfg.Crawl.MaxPages)
	}

	if cfg.Classify.ItemDelay != 1*time.Second || !cfg.Classify.TrainFirst {
		t.Errorf("Unexpected classify defaults: %+v", cfg.Classify)
	}

	if cfg.Search.QueryDelay != 3*time.Second {
		t.Errorf("Expected query delay 3s, got %v", cfg.Search.QueryDelay)
	}

	if cfg.Search.FallbackEndpoint == "" || len(cfg.Search.KnownSources) != 3 {
		t.Errorf("Expected fallback endpoint and three known sources, got %q/%d", cfg.Search.FallbackEndpoint, len(cfg.Search.KnownSources))
	}

	if len(cfg.Search.ShortNames) != 2 {
		t.Errorf("Expected two short names, got %v", cfg.Search.ShortNames)
	}

	if cfg.Log.Level != "info" || !cfg.Log.Console {
		t.Errorf("Unexpected log defaults: %+v", cfg.Log)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:   "empty database path",
			modify: func(c *Config) { c.DatabasePath = "" },
			want:   ErrEmptyDatabasePath,
		},
		{
			name:   "empty domain",
			modify: func(c *Config) { c.Domain = "" },
			want:   ErrEmptyDomain,
		},
		{
			name:   "invalid timeout",
			modify: func(c *Config) { c.Fetch.Timeout = 0 },
			want:   ErrInvalidTimeout,
		},
		{
			name:   "browser timeout ignored when disabled",
			modify: func(c *Config) { c.Fetch.BrowserEnabled = false; c.Fetch.BrowserTimeout = 0 },
		},
		{
			name:   "no static attempts",
			modify: func(c *Config) { c.Fetch.StaticAttempts = 0 },
			want:   ErrInvalidAttempts,
		},
		{
			name:   "negative depth",
			modify: func(c *Config) { c.Crawl.MaxDepth = -1 },
			want:   ErrInvalidDepth,
		},
		{
			name:   "zero depth",
			modify: func(c *Config) { c.Crawl.MaxDepth = 0 },
		},
		{
			name:   "zero pages",
			modify: func(c *Config) { c.Crawl.MaxPages = 0 },
			want:   ErrInvalidLimit,
		},
		{
			name:   "negative delay",
			modify: func(c *Config) { c.Search.QueryDelay = -time.Second },
			want:   ErrNegativeDelay,
		},
		{
			name:   "unknown log level",
			modify: func(c *Config) { c.Log.Level = "verbose" },
			want:   ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBasicAuthCredentials(t *testing.T) {
	cfg := DefaultConfig()

	if u, p := cfg.Fetch.BasicAuthCredentials(); u != "" || p != "" {
		t.Errorf("Expected no credentials, got %q/%q", u, p)
	}

	cfg.Fetch.Basic = &BasicAuth{Username: "ogrenci", Password: "gizli"}
	if u, p := cfg.Fetch.BasicAuthCredentials(); u != "ogrenci" || p != "gizli" {
		t.Errorf("Expected inline credentials, got %q/%q", u, p)
	}

	t.Setenv("CC_TEST_USER", "env-user")
	t.Setenv("CC_TEST_PASS", "env-pass")
	cfg.Fetch.Basic = &BasicAuth{Username: "ignored", UsernameEnv: "CC_TEST_USER", PasswordEnv: "CC_TEST_PASS"}
	if u, p := cfg.Fetch.BasicAuthCredentials(); u != "env-user" || p != "env-pass" {
		t.Errorf("Expected credentials from environment, got %q/%q", u, p)
	}
}
