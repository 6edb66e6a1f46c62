// Package ratelimit paces sequential work per key. The delay is measured
// from the end of one request to the start of the next, so a slow
// request never eats into the pause that follows it.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a pause between the end of one request and the
// start of the next under the same key.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	delay    time.Duration
}

// NewRateLimiter creates a new rate limiter. A non-positive delay
// disables waiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
	}
}

// Delay returns the configured pause.
func (r *RateLimiter) Delay() time.Duration { return r.delay }

// Wait blocks until the delay has passed since the last Done for key.
// A key with no finished request passes immediately.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	limiter, exists := r.limiters[key]
	r.mu.Unlock()

	if !exists {
		return nil
	}
	return limiter.Wait(ctx)
}

// Done records that a request under key has finished, successfully or
// not. The next Wait for key returns no earlier than delay from now.
func (r *RateLimiter) Done(key string) {
	if r.delay <= 0 {
		return
	}

	// A fresh bucket drained right now refills exactly one delay later.
	limiter := rate.NewLimiter(rate.Every(r.delay), 1)
	limiter.AllowN(time.Now(), 1)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[key] = limiter
}
