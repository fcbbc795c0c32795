package time_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pkgtime "github.com/klwxsrx/event-booking/pkg/time"
)

func TestClock_Now(t *testing.T) {
	t.Parallel()
	clock := pkgtime.NewClock()

	pinned := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.FixedZone("UTC+3", 3*60*60))
	ctx := pkgtime.WithNow(context.Background(), pinned)

	assert.True(t, clock.Now(ctx).Equal(pinned))
	assert.Equal(t, time.UTC, clock.Now(ctx).Location())
	assert.Equal(t, time.UTC, clock.Now(context.Background()).Location())
	assert.WithinDuration(t, time.Now(), clock.Now(context.Background()), time.Minute)
}
