package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
)

// Strategy pairs a tier with its retry budget.
type Strategy struct {
	Fetcher Fetcher
	Retry   RetryPolicy
}

// Engine runs strategies in order. A tier is retried on transient
// failures; when its budget is spent the next tier takes over. A
// permanent failure ends the fetch without escalation.
type Engine struct {
	strategies []Strategy
	cache      *cache.Cache
}

// NewEngine creates an engine. cacheTTL <= 0 disables the document cache.
func NewEngine(cacheTTL time.Duration, strategies ...Strategy) *Engine {
	e := &Engine{strategies: strategies}
	if cacheTTL > 0 {
		e.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return e
}

// FetchDocument returns the raw HTML of rawURL from the first tier that
// succeeds. A tier that fails with a transient error or an unusable
// status hands over to the next tier; other permanent failures end the
// fetch. On total failure the error wraps ErrExhausted and the last tier
// error.
func (e *Engine) FetchDocument(ctx context.Context, rawURL string) (*Document, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(rawURL); ok {
			slog.Debug("Document cache hit", "url", rawURL)
			return cached.(*Document), nil
		}
	}

	if len(e.strategies) == 0 {
		return nil, fmt.Errorf("%w: no fetch strategies configured", ErrExhausted)
	}

	var lastErr error
	for i, strategy := range e.strategies {
		doc, err := e.runStrategy(ctx, strategy, rawURL)
		if err == nil {
			if e.cache != nil {
				e.cache.SetDefault(rawURL, doc)
			}
			return doc, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !escalates(err) {
			slog.Warn("Permanent fetch failure", "url", rawURL, "tier", strategy.Fetcher.Tier(), "error", err)
			return nil, err
		}
		if i < len(e.strategies)-1 {
			slog.Info("Escalating fetch tier",
				"url", rawURL,
				"from", strategy.Fetcher.Tier(),
				"to", e.strategies[i+1].Fetcher.Tier(),
				"error", err)
		}
	}

	slog.Warn("All fetch tiers failed", "url", rawURL, "error", lastErr)
	return nil, fmt.Errorf("%w: %s: %w", ErrExhausted, rawURL, lastErr)
}

// Fetch returns the single-block page view of rawURL.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	doc, err := e.FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return BuildPage(doc)
}

func (e *Engine) runStrategy(ctx context.Context, s Strategy, rawURL string) (*Document, error) {
	attempts := s.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		doc, err := attemptFetch(ctx, s.Fetcher, rawURL)
		if err == nil {
			if attempt > 1 {
				slog.Info("Fetch succeeded after retry", "url", rawURL, "tier", s.Fetcher.Tier(), "attempt", attempt)
			}
			return doc, nil
		}
		lastErr = err

		if IsPermanent(err) || ctx.Err() != nil {
			return nil, err
		}

		slog.Warn("Fetch attempt failed",
			"url", rawURL,
			"tier", s.Fetcher.Tier(),
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err)

		if attempt < attempts {
			if err := sleepCtx(ctx, s.Retry.Delay(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// escalates reports whether the next tier should try after err. An
// unusable HTTP status is not retried within a tier but a rendering
// browser may still get through.
func escalates(err error) bool {
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.StatusCode != 0
	}
	return true
}

// attemptFetch converts a panic inside a fetcher into a transient error
// so the engine boundary only ever returns errors.
func attemptFetch(ctx context.Context, f Fetcher, rawURL string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &TransientError{URL: rawURL, Tier: f.Tier(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	doc, err = f.Fetch(ctx, rawURL)
	if err == nil && doc == nil {
		err = &TransientError{URL: rawURL, Tier: f.Tier(), Err: errors.New("fetcher returned no document")}
	}
	return doc, err
}
