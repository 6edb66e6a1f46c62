// Package config provides configuration management for campuscrawl.
// It defines the configuration tree, its default values and validation.
package config

import (
	"os"
	"time"

	"github.com/masahif/campuscrawl/internal/fetch"
	"github.com/masahif/campuscrawl/internal/search"
)

// BasicAuth contains HTTP Basic Authentication credentials
type BasicAuth struct {
	Username    string `mapstructure:"username" yaml:"username"`         // Username for basic auth
	Password    string `mapstructure:"password" yaml:"password"`         // Password for basic auth
	UsernameEnv string `mapstructure:"username_env" yaml:"username_env"` // Environment variable for username
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env"` // Environment variable for password
}

// FetchConfig tunes both fetch tiers.
type FetchConfig struct {
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language" yaml:"accept_language"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRedirects   int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	StaticAttempts int           `mapstructure:"static_attempts" yaml:"static_attempts"`
	StaticBackoff  time.Duration `mapstructure:"static_backoff" yaml:"static_backoff"`

	// Headless browser tier
	BrowserEnabled  bool          `mapstructure:"browser_enabled" yaml:"browser_enabled"`
	BrowserAttempts int           `mapstructure:"browser_attempts" yaml:"browser_attempts"`
	BrowserBackoff  time.Duration `mapstructure:"browser_backoff" yaml:"browser_backoff"`
	BrowserTimeout  time.Duration `mapstructure:"browser_timeout" yaml:"browser_timeout"`
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	ChromePath      string        `mapstructure:"chrome_path" yaml:"chrome_path"` // empty: let chromedp locate Chrome

	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"` // 0 disables the document cache

	// Basic auth for the static tier
	Basic *BasicAuth `mapstructure:"basic_auth" yaml:"basic_auth,omitempty"`
}

// CrawlConfig holds domain crawler settings
type CrawlConfig struct {
	MaxDepth  int           `mapstructure:"max_depth" yaml:"max_depth"`
	MaxPages  int           `mapstructure:"max_pages" yaml:"max_pages"`
	PageDelay time.Duration `mapstructure:"page_delay" yaml:"page_delay"` // pause between pages on one domain
	Save      bool          `mapstructure:"save" yaml:"save"`             // persist discovered URLs
}

// ExtractConfig holds extraction batch settings
type ExtractConfig struct {
	Limit     int           `mapstructure:"limit" yaml:"limit"`
	ItemDelay time.Duration `mapstructure:"item_delay" yaml:"item_delay"`
}

// ClassifyConfig holds classification batch settings
type ClassifyConfig struct {
	Limit      int           `mapstructure:"limit" yaml:"limit"`
	ItemDelay  time.Duration `mapstructure:"item_delay" yaml:"item_delay"`
	TrainFirst bool          `mapstructure:"train_first" yaml:"train_first"` // models live in memory only
}

// KnownSource is a page offered when no search endpoint yields a result.
type KnownSource struct {
	Title   string `mapstructure:"title" yaml:"title"`
	URL     string `mapstructure:"url" yaml:"url"`
	Snippet string `mapstructure:"snippet" yaml:"snippet"`
}

// SearchConfig holds web search settings
type SearchConfig struct {
	Endpoint         string        `mapstructure:"endpoint" yaml:"endpoint"`
	FallbackEndpoint string        `mapstructure:"fallback_endpoint" yaml:"fallback_endpoint"` // empty disables
	KnownSources     []KnownSource `mapstructure:"known_sources" yaml:"known_sources"`
	BaseQuery        string        `mapstructure:"base_query" yaml:"base_query"`
	ShortNames       []string      `mapstructure:"short_names" yaml:"short_names"`
	MaxResults       int           `mapstructure:"max_results" yaml:"max_results"`
	PerQuery         int           `mapstructure:"per_query" yaml:"per_query"`
	QueryDelay       time.Duration `mapstructure:"query_delay" yaml:"query_delay"`
	ItemDelay        time.Duration `mapstructure:"item_delay" yaml:"item_delay"`
	Save             bool          `mapstructure:"save" yaml:"save"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int64  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Console    bool   `mapstructure:"console" yaml:"console"`
}

// Config is the full campuscrawl configuration
type Config struct {
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file
	Domain       string `mapstructure:"domain" yaml:"domain"`               // Registrable domain the crawler stays in

	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Crawl    CrawlConfig    `mapstructure:"crawl" yaml:"crawl"`
	Extract  ExtractConfig  `mapstructure:"extract" yaml:"extract"`
	Classify ClassifyConfig `mapstructure:"classify" yaml:"classify"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./campuscrawl.db",
		Domain:       "gtu.edu.tr",
		Fetch: FetchConfig{
			UserAgent:       fetch.DefaultUserAgent,
			AcceptLanguage:  fetch.DefaultAcceptLanguage,
			Timeout:         20 * time.Second,
			MaxRedirects:    5,
			StaticAttempts:  3,
			StaticBackoff:   2 * time.Second,
			BrowserEnabled:  true,
			BrowserAttempts: 3,
			BrowserBackoff:  3 * time.Second,
			BrowserTimeout:  30 * time.Second,
			SettleDelay:     2 * time.Second,
			CacheTTL:        10 * time.Minute,
		},
		Crawl: CrawlConfig{
			MaxDepth:  2,
			MaxPages:  50,
			PageDelay: 1 * time.Second,
		},
		Extract: ExtractConfig{
			Limit:     10,
			ItemDelay: 2 * time.Second,
		},
		Classify: ClassifyConfig{
			Limit:      50,
			ItemDelay:  1 * time.Second,
			TrainFirst: true,
		},
		Search: SearchConfig{
			Endpoint:         search.DefaultEndpoint,
			FallbackEndpoint: search.DefaultFallbackEndpoint,
			KnownSources:     defaultKnownSources(),
			BaseQuery:        search.DefaultBaseQuery,
			ShortNames:       append([]string(nil), search.DefaultShortNames...),
			MaxResults:       10,
			PerQuery:         5,
			QueryDelay:       3 * time.Second,
			ItemDelay:        2 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			Console:    true,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}

	if c.Domain == "" {
		return ErrEmptyDomain
	}

	if c.Fetch.Timeout <= 0 || (c.Fetch.BrowserEnabled && c.Fetch.BrowserTimeout <= 0) {
		return ErrInvalidTimeout
	}

	if c.Fetch.StaticAttempts <= 0 || (c.Fetch.BrowserEnabled && c.Fetch.BrowserAttempts <= 0) {
		return ErrInvalidAttempts
	}

	if c.Crawl.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.Crawl.MaxPages <= 0 || c.Search.MaxResults <= 0 || c.Search.PerQuery <= 0 {
		return ErrInvalidLimit
	}

	if c.Crawl.PageDelay < 0 || c.Extract.ItemDelay < 0 || c.Classify.ItemDelay < 0 ||
		c.Search.QueryDelay < 0 || c.Search.ItemDelay < 0 {
		return ErrNegativeDelay
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

func defaultKnownSources() []KnownSource {
	var out []KnownSource
	for _, r := range search.DefaultKnownSources() {
		out = append(out, KnownSource{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out
}

// BasicAuthCredentials returns the basic auth username and password,
// resolving environment variables if specified
func (c *FetchConfig) BasicAuthCredentials() (username, password string) {
	if c.Basic == nil {
		return "", ""
	}

	basic := c.Basic

	// Get username
	if basic.UsernameEnv != "" {
		username = os.Getenv(basic.UsernameEnv)
	} else {
		username = basic.Username
	}

	// Get password
	if basic.PasswordEnv != "" {
		password = os.Getenv(basic.PasswordEnv)
	} else {
		password = basic.Password
	}

	return username, password
}
