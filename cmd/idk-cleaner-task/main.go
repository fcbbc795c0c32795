package main

import (
	"context"
	"fmt"

	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
)

// Runs once, scheduling is left to cron. Exits with 1 when the keys could not be deleted.
func main() {
	ctx := context.Background()
	infra := cmd.NewInfrastructureContainer(ctx)
	defer infra.Close(ctx)

	infra.MustRunTask(ctx, func(ctx context.Context) error {
		err := infra.IdempotencyKeysCleaner.MustLoad().DeleteOutdated(ctx)
		if err != nil {
			return fmt.Errorf("delete outdated idempotency keys: %w", err)
		}

		infra.Logger.MustLoad().Info(ctx, "outdated idempotency keys deleted")
		return nil
	})
}
