package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrAttemptsExhausted = errors.New("connect attempts exhausted")

type (
	// Policy retries with a fixed delay between attempts.
	Policy struct {
		MaxAttempts int
		Backoff     time.Duration
		Forever     bool
	}

	Notify func(attempt int, err error, next time.Duration)
)

func (p Policy) backOff() backoff.BackOff {
	if p.Forever {
		return backoff.NewConstantBackOff(p.Backoff)
	}
	if p.MaxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}

	return backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(p.MaxAttempts-1))
}

// Connect calls connect until it succeeds, the policy is exhausted or ctx is done.
func Connect[T any](ctx context.Context, policy Policy, connect func(context.Context) (T, error), notify ...Notify) (T, error) {
	var attempts int
	result, err := backoff.RetryNotifyWithData(
		func() (T, error) {
			attempts++
			return connect(ctx)
		},
		backoff.WithContext(policy.backOff(), ctx),
		func(err error, next time.Duration) {
			for _, fn := range notify {
				fn(attempts, err, next)
			}
		},
	)
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("connect cancelled after %d attempts: %w", attempts, errors.Join(ctxErr, err))
	}

	return result, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, err)
}
