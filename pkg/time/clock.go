package time

import (
	"context"
	"time"
)

const nowContextKey contextKey = iota

type (
	Clock interface {
		// Now returns the time pinned by WithNow, the current UTC time otherwise.
		Now(context.Context) time.Time
	}

	utcClock   struct{}
	contextKey int
)

func NewClock() Clock {
	return utcClock{}
}

// WithNow pins the time returned by every Clock for ctx.
func WithNow(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowContextKey, t.UTC())
}

func (utcClock) Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowContextKey).(time.Time); ok {
		return t
	}

	return time.Now().UTC()
}
