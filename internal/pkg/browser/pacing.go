package browser

import (
	"context"
	"math/rand"
	"time"
)

// Jitter returns a random duration in [lo, hi]. If hi <= lo it returns lo.
func Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo+1)))
}

// Delay sleeps for a random duration in [lo, hi] or until ctx is done.
func Delay(ctx context.Context, lo, hi time.Duration) error {
	d := Jitter(lo, hi)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
