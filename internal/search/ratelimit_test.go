package search

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/llehouerou/cratedigger/internal/provider"
)

func TestLimiter_FirstCallDoesNotWait(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := newLimiter(provider.RateLimit{MaxCalls: 1, Interval: time.Second})

		start := time.Now()
		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
			t.Errorf("first call waited %v, expected no wait", elapsed)
		}
	})
}

func TestLimiter_SecondCallWaitsOneInterval(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := newLimiter(provider.RateLimit{MaxCalls: 1, Interval: time.Second})

		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		start := time.Now()
		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
			t.Errorf("second call only waited %v, expected ~1s", elapsed)
		}
	})
}

func TestLimiter_BurstWithinLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := newLimiter(provider.RateLimit{MaxCalls: 5, Interval: time.Second})

		start := time.Now()
		for range 5 {
			if err := l.wait(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
			t.Errorf("burst of 5 waited %v, expected no wait", elapsed)
		}

		// The sixth call has to wait for the window to open.
		start = time.Now()
		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
			t.Errorf("sixth call only waited %v, expected ~1s", elapsed)
		}
	})
}

func TestLimiter_NoWaitAfterWindowPasses(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := newLimiter(provider.RateLimit{MaxCalls: 1, Interval: time.Second})

		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		time.Sleep(time.Second + 100*time.Millisecond)

		start := time.Now()
		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
			t.Errorf("call after window waited %v, expected no wait", elapsed)
		}
	})
}

func TestLimiter_ContextCancelledWhileWaiting(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := newLimiter(provider.RateLimit{MaxCalls: 1, Interval: time.Minute})

		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		if err := l.wait(ctx); err != context.Canceled {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}
