// Package fetch retrieves pages through a static HTTP tier and, when that
// fails, a headless-browser tier. Both tiers sit behind the Fetcher
// capability and are driven by one escalation policy in Engine.
package fetch

import (
	"context"
	"time"
)

// Tier names a fetch strategy.
type Tier string

const (
	TierStatic  Tier = "static"
	TierBrowser Tier = "browser"
)

// Fetcher performs a single fetch attempt.
type Fetcher interface {
	Tier() Tier
	Fetch(ctx context.Context, rawURL string) (*Document, error)
}

// Document is raw HTML as delivered by one tier, decoded to UTF-8.
type Document struct {
	URL        string // as requested
	FinalURL   string // after redirects
	StatusCode int
	HTML       []byte
	Tier       Tier
	Metrics    HTTPMetrics // static tier only
	FetchedAt  time.Time
}

// BaseURL returns the URL relative links in the document resolve against.
func (d *Document) BaseURL() string {
	if d.FinalURL != "" {
		return d.FinalURL
	}
	return d.URL
}

// RetryPolicy bounds the attempts of one tier. The wait after a failed
// attempt grows linearly with the attempt number.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt)
}

// DefaultStaticRetry matches a 3-attempt, 2s*attempt schedule.
func DefaultStaticRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

// DefaultBrowserRetry matches a 3-attempt, 3s*attempt schedule.
func DefaultBrowserRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 3 * time.Second}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
