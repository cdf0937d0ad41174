package search

import (
	"context"
	"sync"
	"time"

	"github.com/llehouerou/cratedigger/internal/provider"
)

// limiter enforces a provider's rate limit of MaxCalls per Interval with
// a sliding window. Calls beyond the limit wait for the window to open
// rather than being rejected.
type limiter struct {
	mu       sync.Mutex
	maxCalls int
	interval time.Duration
	calls    []time.Time
}

func newLimiter(rl provider.RateLimit) *limiter {
	return &limiter{
		maxCalls: max(rl.MaxCalls, 1),
		interval: rl.Interval,
	}
}

// wait blocks until a call slot is available or ctx is done. On success
// the slot is consumed.
func (l *limiter) wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()

		// Drop timestamps that have left the window.
		cutoff := now.Add(-l.interval)
		for len(l.calls) > 0 && !l.calls[0].After(cutoff) {
			l.calls = l.calls[1:]
		}

		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}

		wakeAt := l.calls[0].Add(l.interval)
		l.mu.Unlock()

		timer := time.NewTimer(time.Until(wakeAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
