package rpc

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy is capped exponential backoff with ±10% jitter, per spec.md
// §4.1. Different verbs carry different bounds.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var (
	ReadRetryPolicy   = RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond}
	SubmitRetryPolicy = RetryPolicy{MaxAttempts: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 2000 * time.Millisecond}
)

// delay returns the backoff delay before attempt (1-indexed), capped at
// MaxDelay, with +/-10% jitter.
func (p RetryPolicy) delay(attempt int, rng *rand.Rand) time.Duration {
	mult := math.Pow(2, float64(attempt-1))
	base := float64(p.BaseDelay) * mult
	if base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	jitter := base * 0.10
	offset := (rng.Float64()*2 - 1) * jitter
	d := time.Duration(base + offset)
	if d < 0 {
		d = 0
	}
	return d
}

// RetryableFunc is a call guarded by a breaker; it must report whether a
// failure is retryable (transient) via the returned error's Kind.
type RetryableFunc func(ctx context.Context) error

// IsRetryable is supplied by callers (usually snipeerr.Error.Retryable).
type IsRetryable func(error) bool

// WithRetry runs fn under breaker b using policy p, retrying while
// isRetryable(err) holds and attempts remain. Breaker-open never retries:
// it is returned immediately as a distinct error.
func WithRetry(ctx context.Context, b *Breaker, p RetryPolicy, isRetryable IsRetryable, fn RetryableFunc) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		now := time.Now()
		if !b.Allow(now) {
			return ErrCircuitOpen
		}

		err := fn(ctx)
		if err == nil {
			b.RecordSuccess(time.Now())
			return nil
		}

		b.RecordFailure(time.Now())
		lastErr = err

		if !isRetryable(err) || attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt, rng)):
		}
	}
	return lastErr
}
