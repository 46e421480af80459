package snapshot

import (
	"context"
	"sync"
	"time"
)

// RateLimiter throttles snapshot fetches to a fixed-window budget,
// guarding the snapshot REST endpoint against bursts from many
// products rebuilding at once (e.g. a shared cold start, or a
// threshold trip that lands on several engines in the same tick).
//
// Unlike a continuously-refilling bucket, this counts calls within a
// fixed window and resets the count when the window
// elapses — simpler to reason about for the bursty-then-idle access
// pattern rebuilds actually have, since a rebuild burst either fits
// inside the current window or waits for the next one outright rather
// than trickling out one token at a time.
type RateLimiter struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	windowStart time.Time
	count       int
}

// NewRateLimiter returns a limiter allowing up to capacity fetches per
// window, where the window length is sized so that capacity fetches
// spread evenly works out to ratePerSecond.
func NewRateLimiter(capacity, ratePerSecond float64) *RateLimiter {
	max := int(capacity)
	if max < 1 {
		max = 1
	}
	window := time.Second
	if ratePerSecond > 0 {
		window = time.Duration(capacity / ratePerSecond * float64(time.Second))
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		max:         max,
		window:      window,
		windowStart: time.Now(),
	}
}

// Wait blocks until the current window has room for another fetch, or
// ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		if now.Sub(rl.windowStart) >= rl.window {
			rl.windowStart = now
			rl.count = 0
		}
		if rl.count < rl.max {
			rl.count++
			rl.mu.Unlock()
			return nil
		}
		wait := rl.window - now.Sub(rl.windowStart)
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
