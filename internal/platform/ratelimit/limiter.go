package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window request throttle shared by every component that
// talks to the FPL API. At most maxRequests admissions complete within any
// trailing window.
type Limiter struct {
	mu         sync.Mutex
	timestamps []time.Time

	maxRequests int
	window      time.Duration
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		timestamps:  make([]time.Time, 0, maxRequests),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Acquire blocks until one more request may be issued, then records it.
// The check loops rather than waiting once: several queued callers can wake
// from the same sleep and only the window state decides who proceeds.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.evictExpired(now)

		if len(l.timestamps) < l.maxRequests {
			l.timestamps = append(l.timestamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.window - now.Sub(l.timestamps[0])
		l.mu.Unlock()

		if wait < 0 {
			wait = 0
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// evictExpired drops timestamps older than the window. Caller holds l.mu.
func (l *Limiter) evictExpired(now time.Time) {
	keep := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if now.Sub(ts) < l.window {
			keep = append(keep, ts)
		}
	}
	l.timestamps = keep
}

// Pending reports how many admissions currently sit inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictExpired(l.now())
	return len(l.timestamps)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Yield once so a zero wait still observes cancellation.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
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
