package booking

import (
	"github.com/klwxsrx/event-booking/internal/booking/app/service"
	"github.com/klwxsrx/event-booking/internal/booking/infra"
	"github.com/klwxsrx/event-booking/internal/booking/infra/http"
	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/pkg/notification"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
	"github.com/klwxsrx/event-booking/pkg/lazy"
	"github.com/klwxsrx/event-booking/pkg/sql"
	pkgtime "github.com/klwxsrx/event-booking/pkg/time"
)

const ServiceName = cmd.ServiceBooking

type DependencyContainer struct {
	BookingService lazy.Loader[service.Booking]
	// UserDeletionHandler applies deletion events consumed by the booking deletion worker.
	UserDeletionHandler lazy.Loader[*userdeletion.Handler]

	createBookingHandler lazy.Loader[http.CreateBookingHandler]
	listBookingsHandler  lazy.Loader[http.ListBookingsHandler]
	relayHandler         lazy.Loader[pkghttp.Handler]
}

func NewDependencyContainer(infraContainer *cmd.InfrastructureContainer) DependencyContainer {
	sqlContainer := infra.NewSQLContainer(infraContainer.DB, infraContainer.DBMigrations)
	userRecords := lazy.New(func() (userdeletion.DependentRecordStore, error) {
		return sqlContainer.MustLoad().BookingRepo.MustLoad(), nil
	})
	bookingService := lazy.New(func() (service.Booking, error) {
		return service.NewBooking(
			sqlContainer.MustLoad().BookingRepo.MustLoad(),
			notification.NewPublisher(infraContainer.MessageOutboxProducer.MustLoad()),
			sql.NewTransaction(infraContainer.DB.MustLoad()),
			pkgtime.NewClock(),
		), nil
	})

	return DependencyContainer{
		BookingService: bookingService,
		UserDeletionHandler: infraContainer.UserDeletionHandler(
			string(userdeletion.SubscriberName(ServiceName)),
			cmd.DestinationBookingService,
			userRecords,
		),
		createBookingHandler: lazy.New(func() (http.CreateBookingHandler, error) {
			return http.NewCreateBookingHandler(bookingService.MustLoad()), nil
		}),
		listBookingsHandler: lazy.New(func() (http.ListBookingsHandler, error) {
			return http.NewListBookingsHandler(bookingService.MustLoad()), nil
		}),
		relayHandler: lazy.New(func() (pkghttp.Handler, error) {
			return userdeletion.NewRelayHTTPHandler(userdeletion.NewHandler(userRecords.MustLoad())), nil
		}),
	}
}

func (c *DependencyContainer) MustRegisterHTTPHandlers(registry pkghttp.HandlerRegistry) {
	registry.Register(c.createBookingHandler.MustLoad())
	registry.Register(c.listBookingsHandler.MustLoad())
	registry.Register(c.relayHandler.MustLoad())
}
