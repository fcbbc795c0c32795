package main

import (
	"context"

	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
)

// Relays the outbox of the database in SQL_DATABASE, polling every MESSAGE_OUTBOX_POLL_INTERVAL.
func main() {
	ctx := context.Background()
	infra := cmd.NewInfrastructureContainer(ctx)
	defer infra.Close(ctx)

	infra.MustRunWorker(ctx, infra.MessageOutbox.MustLoad().Worker)
}
