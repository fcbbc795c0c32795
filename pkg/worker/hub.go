package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/klwxsrx/event-booking/pkg/log"
)

var errProcessCompleted = errors.New("process completed")

func MustRunHub(ctx context.Context, logger log.Logger, process ErrorJob, processes ...ErrorJob) {
	err := RunHub(ctx, logger, process, processes...)
	if err != nil {
		panic(fmt.Errorf("hub completed with error: %w", err))
	}
}

// RunHub runs processes until the first one returns; the rest are cancelled and awaited.
func RunHub(ctx context.Context, logger log.Logger, process ErrorJob, processes ...ErrorJob) error {
	wrap := func(process ErrorJob) ErrorJob {
		return func(ctx context.Context) error {
			err := process(ctx)
			switch {
			case err == nil:
				return errProcessCompleted
			case errors.Is(err, context.Canceled) && ctx.Err() != nil:
				return err
			}

			logger.WithError(err).Error(ctx, "process completed with error")
			return err
		}
	}

	processGroup := NewFailFastGroup(ctx)
	processGroup.Do(wrap(process))
	for _, p := range processes {
		processGroup.Do(wrap(p))
	}

	err := processGroup.Wait()
	if errors.Is(err, errProcessCompleted) || errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
