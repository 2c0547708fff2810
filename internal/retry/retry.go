package retry

import (
	"context"
	"time"

	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/rs/zerolog"
)

// Policy is a bounded attempt count with a fixed delay between attempts
type Policy struct {
	Attempts int
	Delay    time.Duration
	Logger   *zerolog.Logger
}

// DefaultPolicy matches the service defaults: three attempts, one second apart
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: time.Second}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for functions that produce a result
func Value[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !errs.Retryable(err) || attempt == attempts {
			break
		}

		if p.Logger != nil {
			p.Logger.Warn().
				Err(err).
				Str("op", op).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Dur("delay", p.Delay).
				Msg("retrying")
		}

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}
