package cmd

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/klwxsrx/event-booking/pkg/log"
)

// LogAppPanic logs a value returned by recover. The caller recovers itself,
// recover has no effect outside the deferred function.
func LogAppPanic(ctx context.Context, logger log.Logger, recovered any) (panicCaught bool) {
	if recovered == nil {
		return false
	}

	logger.WithField("panic", log.Fields{
		"message": fmt.Sprintf("%v", recovered),
		"stack":   string(debug.Stack()),
	}).Error(ctx, "app failed with panic")
	return true
}
