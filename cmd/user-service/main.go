package main

import (
	"context"

	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/user"
	pkgcmd "github.com/klwxsrx/event-booking/pkg/cmd"
	"github.com/klwxsrx/event-booking/pkg/worker"
)

func main() {
	ctx := context.Background()
	infra := cmd.NewInfrastructureContainer(ctx)
	defer infra.Close(ctx)

	container := user.NewDependencyContainer(
		infra.DB,
		infra.DBMigrations,
		infra.MessageOutboxProducer,
		infra.MessageBroker,
	)

	httpServer := infra.HTTPServer.MustLoad()
	container.MustRegisterHTTPHandlers(httpServer)

	worker.MustRunHub(ctx, infra.Logger.MustLoad(),
		pkgcmd.TermSignalAwaiter,
		httpServer.Listener,
	)
}
