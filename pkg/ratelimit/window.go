package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrLimitExceeded is returned when a call would exceed the rolling window.
// The caller decides whether to retry later; the limiter never blocks.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// WindowLimiter allows at most maxCalls within a rolling window.
type WindowLimiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
	now      func() time.Time
}

func NewWindowLimiter(maxCalls int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		maxCalls: maxCalls,
		window:   window,
		calls:    make([]time.Time, 0, maxCalls),
		now:      time.Now,
	}
}

// Allow records a call if the window has capacity, otherwise returns
// ErrLimitExceeded without blocking.
func (l *WindowLimiter) Allow() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	if len(l.calls) >= l.maxCalls {
		return ErrLimitExceeded
	}

	l.calls = append(l.calls, now)
	return nil
}

// Remaining reports how many calls are left in the current window.
func (l *WindowLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(l.now())
	return l.maxCalls - len(l.calls)
}

func (l *WindowLimiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept
}
