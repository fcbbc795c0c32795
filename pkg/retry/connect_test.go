package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/event-booking/pkg/retry"
)

var errRefused = errors.New("connection refused")

type connection struct {
	attempt int
}

func reachableAfter(failures int, attempts *int) func(context.Context) (*connection, error) {
	return func(context.Context) (*connection, error) {
		*attempts++
		if *attempts <= failures {
			return nil, errRefused
		}
		return &connection{attempt: *attempts}, nil
	}
}

func TestConnect_RetryBound(t *testing.T) {
	const maxAttempts = 5

	tests := []struct {
		name     string
		failures int
		expect   func(t *testing.T, conn *connection, attempts int, err error)
	}{
		{
			name:     "success_on_first_attempt",
			failures: 0,
			expect: func(t *testing.T, conn *connection, attempts int, err error) {
				require.NoError(t, err)
				assert.Equal(t, 1, conn.attempt)
				assert.Equal(t, 1, attempts)
			},
		},
		{
			name:     "success_on_attempt_after_failures",
			failures: maxAttempts - 1,
			expect: func(t *testing.T, conn *connection, attempts int, err error) {
				require.NoError(t, err)
				assert.Equal(t, maxAttempts, conn.attempt)
				assert.Equal(t, maxAttempts, attempts)
			},
		},
		{
			name:     "failure_when_failures_reach_max_attempts",
			failures: maxAttempts,
			expect: func(t *testing.T, conn *connection, attempts int, err error) {
				assert.ErrorIs(t, err, retry.ErrAttemptsExhausted)
				assert.ErrorIs(t, err, errRefused)
				assert.Nil(t, conn)
				assert.Equal(t, maxAttempts, attempts)
			},
		},
		{
			name:     "failure_when_broker_never_reachable",
			failures: 100,
			expect: func(t *testing.T, conn *connection, attempts int, err error) {
				assert.ErrorIs(t, err, retry.ErrAttemptsExhausted)
				assert.Equal(t, maxAttempts, attempts)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var attempts int
			conn, err := retry.Connect(
				context.Background(),
				retry.Policy{MaxAttempts: maxAttempts, Backoff: time.Millisecond},
				reachableAfter(tc.failures, &attempts),
			)
			tc.expect(t, conn, attempts, err)
		})
	}
}

func TestConnect_SingleAttempt(t *testing.T) {
	var attempts int
	_, err := retry.Connect(
		context.Background(),
		retry.Policy{MaxAttempts: 1, Backoff: time.Hour},
		reachableAfter(1, &attempts),
	)

	assert.ErrorIs(t, err, retry.ErrAttemptsExhausted)
	assert.Equal(t, 1, attempts)
}

func TestConnect_ForeverIgnoresMaxAttempts(t *testing.T) {
	var attempts int
	conn, err := retry.Connect(
		context.Background(),
		retry.Policy{MaxAttempts: 2, Backoff: time.Millisecond, Forever: true},
		reachableAfter(7, &attempts),
	)

	require.NoError(t, err)
	assert.Equal(t, 8, conn.attempt)
}

func TestConnect_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var attempts int
	started := time.Now()
	_, err := retry.Connect(
		ctx,
		retry.Policy{Backoff: 10 * time.Millisecond, Forever: true},
		reachableAfter(1000, &attempts),
	)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, retry.ErrAttemptsExhausted)
	assert.Less(t, time.Since(started), time.Second)
}

func TestConnect_NotifiesEveryFailedAttempt(t *testing.T) {
	var (
		attempts int
		notified []int
	)
	_, err := retry.Connect(
		context.Background(),
		retry.Policy{MaxAttempts: 4, Backoff: time.Millisecond},
		reachableAfter(2, &attempts),
		func(attempt int, err error, _ time.Duration) {
			assert.ErrorIs(t, err, errRefused)
			notified = append(notified, attempt)
		},
	)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, notified)
}
