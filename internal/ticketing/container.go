package ticketing

import (
	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/internal/ticketing/infra"
	"github.com/klwxsrx/event-booking/pkg/lazy"
)

const ServiceName = cmd.ServiceTicketing

type DependencyContainer struct {
	// UserDeletionHandler always deletes in the local database, ticketing serves no relay endpoint.
	UserDeletionHandler lazy.Loader[*userdeletion.Handler]
}

func NewDependencyContainer(infraContainer *cmd.InfrastructureContainer) DependencyContainer {
	sqlContainer := infra.NewSQLContainer(infraContainer.DB, infraContainer.DBMigrations)
	userRecords := lazy.New(func() (userdeletion.DependentRecordStore, error) {
		return sqlContainer.MustLoad().TicketRepo.MustLoad(), nil
	})

	return DependencyContainer{
		UserDeletionHandler: infraContainer.SQLUserDeletionHandler(
			string(userdeletion.SubscriberName(ServiceName)),
			userRecords,
		),
	}
}
