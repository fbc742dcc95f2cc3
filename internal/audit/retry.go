package audit

import (
	"context"
	"math"
	"time"
)

// RetrySpec is the retry/backoff configuration the core hands to its
// host scheduler. The core keeps every unit of work idempotent; the
// caller owns the loop.
type RetrySpec struct {
	MaxRetries     int
	InitialBackoff time.Duration
	Scaling        float64
}

// DiscoveryRetry is the default policy for discovery units.
func DiscoveryRetry() RetrySpec {
	return RetrySpec{MaxRetries: 2, InitialBackoff: time.Second, Scaling: 1.5}
}

// PageRetry is the default policy for per-page analysis units.
func PageRetry() RetrySpec {
	return RetrySpec{MaxRetries: 3, InitialBackoff: 500 * time.Millisecond, Scaling: 2.0}
}

// Backoff returns the wait before retry attempt n (0-based).
func (r RetrySpec) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	scaling := r.Scaling
	if scaling <= 0 {
		scaling = 1
	}
	d := float64(r.InitialBackoff) * math.Pow(scaling, float64(attempt))
	return time.Duration(d)
}

// Do runs fn up to 1+MaxRetries times, sleeping the scaled backoff
// between attempts. It returns the first nil result or the final error.
// Context cancellation stops the loop immediately.
func (r RetrySpec) Do(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= r.MaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Backoff(attempt)):
		}
	}
}
