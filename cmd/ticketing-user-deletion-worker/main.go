package main

import (
	"context"
	"fmt"

	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/internal/ticketing"
)

func main() {
	ctx := context.Background()
	infra := cmd.NewInfrastructureContainer(ctx)
	defer infra.Close(ctx)

	container := ticketing.NewDependencyContainer(infra)

	consumer, err := userdeletion.NewConsumer(ctx,
		infra.MessageBroker.MustLoad(),
		ticketing.ServiceName,
		container.UserDeletionHandler.MustLoad(),
		infra.MessageListenerOptions.MustLoad()...,
	)
	if err != nil {
		panic(fmt.Errorf("init user deletion consumer: %w", err))
	}

	infra.MustRunWorker(ctx, consumer)
}
