package main

import (
	"context"
	"fmt"

	"github.com/klwxsrx/event-booking/internal/booking"
	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
)

func main() {
	ctx := context.Background()
	infra := cmd.NewInfrastructureContainer(ctx)
	defer infra.Close(ctx)

	container := booking.NewDependencyContainer(infra)

	consumer, err := userdeletion.NewConsumer(ctx,
		infra.MessageBroker.MustLoad(),
		booking.ServiceName,
		container.UserDeletionHandler.MustLoad(),
		infra.MessageListenerOptions.MustLoad()...,
	)
	if err != nil {
		panic(fmt.Errorf("init user deletion consumer: %w", err))
	}

	infra.MustRunWorker(ctx, consumer)
}
