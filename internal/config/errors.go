package config

import "errors"

var (
	// ErrEmptyDatabasePath is returned when database path is empty
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
	// ErrEmptyDomain is returned when no target domain is configured
	ErrEmptyDomain = errors.New("domain cannot be empty")
	// ErrInvalidTimeout is returned when a fetch timeout is not greater than 0
	ErrInvalidTimeout = errors.New("fetch timeouts must be greater than 0")
	// ErrInvalidAttempts is returned when a tier allows no attempts
	ErrInvalidAttempts = errors.New("fetch attempts must be greater than 0")
	// ErrInvalidDepth is returned for a negative crawl depth
	ErrInvalidDepth = errors.New("crawl.max_depth cannot be negative")
	// ErrInvalidLimit is returned when a page or result limit is not greater than 0
	ErrInvalidLimit = errors.New("page and result limits must be greater than 0")
	// ErrNegativeDelay is returned for a negative pacing delay
	ErrNegativeDelay = errors.New("delays cannot be negative")
	// ErrInvalidLogLevel is returned for an unknown log level
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
)
