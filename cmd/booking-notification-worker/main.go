package main

import (
	"context"
	"fmt"

	"github.com/klwxsrx/event-booking/internal/booking"
	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/pkg/notification"
)

func main() {
	ctx := context.Background()
	infra := cmd.NewInfrastructureContainer(ctx)
	defer infra.Close(ctx)

	logger := infra.Logger.MustLoad()
	consumer, err := notification.NewConsumer(ctx,
		infra.MessageBroker.MustLoad(),
		booking.ServiceName,
		notification.NewLogSender(logger),
		infra.MessageListenerOptions.MustLoad()...,
	)
	if err != nil {
		panic(fmt.Errorf("init booking notification consumer: %w", err))
	}

	infra.MustRunWorker(ctx, consumer)
}
