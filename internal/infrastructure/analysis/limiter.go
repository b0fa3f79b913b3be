package analysis

import (
	"context"
	"sync"
	"time"
)

const defaultPerMinute = 10

// Limiter spaces remote analysis calls so the interval between two calls
// never drops below 60/N seconds, process-wide. It owns a single shared
// last-call timestamp; holding the lock across the wait serializes callers
// from concurrently ingesting sources.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	// Injectable for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewLimiter builds a limiter allowing at most perMinute calls per minute.
// Non-positive values fall back to the default of 10.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}
	return &Limiter{
		interval: time.Minute / time.Duration(perMinute),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the next call is allowed, then records the call time.
// Returns early only when the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if remaining := l.interval - l.now().Sub(l.last); remaining > 0 {
			if err := l.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	l.last = l.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
