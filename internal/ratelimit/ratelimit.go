// Package ratelimit paces calls to external services. Each service key
// (embedding API, source search, generation) gets its own token bucket so
// quota pressure on one service never stalls another.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Service keys used by the pipeline.
const (
	KeyEmbedding  = "embedding"
	KeySearch     = "search"
	KeyGeneration = "generation"
)

// DefaultInterval is the minimum spacing between calls to one service when
// no per-key interval was configured.
const DefaultInterval = 200 * time.Millisecond

// Limiter maintains one rate.Limiter per service key. Safe for concurrent
// use.
type Limiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
}

// New creates a Limiter. intervals maps service keys to their minimum
// inter-call spacing; unknown keys fall back to DefaultInterval.
func New(intervals map[string]time.Duration) *Limiter {
	cp := make(map[string]time.Duration, len(intervals))
	for k, v := range intervals {
		if v > 0 {
			cp[k] = v
		}
	}
	return &Limiter{
		limiters:  make(map[string]*rate.Limiter),
		intervals: cp,
	}
}

// Wait blocks until the service key's bucket has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, serviceKey string) error {
	if err := l.forKey(serviceKey).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %q: %w", serviceKey, err)
	}
	return nil
}

// Throttle runs fn once the service key's bucket permits it. Waits for
// different service keys never serialize against each other.
func Throttle[T any](ctx context.Context, l *Limiter, serviceKey string, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := l.Wait(ctx, serviceKey); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}

func (l *Limiter) forKey(serviceKey string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[serviceKey]; ok {
		return lim
	}

	interval, ok := l.intervals[serviceKey]
	if !ok {
		interval = DefaultInterval
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	l.limiters[serviceKey] = lim
	return lim
}
