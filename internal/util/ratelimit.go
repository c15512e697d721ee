package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outgoing calls to a fixed number per minute. A nil
// *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter that allows perMinute operations per
// minute with a burst of one. It returns nil when perMinute <= 0.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	every := time.Minute / time.Duration(perMinute)
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(every), 1)}
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	return rl.limiter.Wait(ctx)
}
