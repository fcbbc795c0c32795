package infra

import (
	"github.com/klwxsrx/event-booking/data/sql/booking"
	"github.com/klwxsrx/event-booking/internal/booking/infra/sql"
	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/pkg/lazy"
	pkgsql "github.com/klwxsrx/event-booking/pkg/sql"
)

type SQLContainer struct {
	BookingRepo lazy.Loader[*sql.BookingRepository]
}

func NewSQLContainer(
	db lazy.Loader[pkgsql.Database],
	dbMigrations lazy.Loader[cmd.SQLMigrations],
) lazy.Loader[SQLContainer] {
	return lazy.New(func() (SQLContainer, error) {
		dbMigrations.MustLoad().MustRegister(booking.Migrations)

		return SQLContainer{
			BookingRepo: lazy.New(func() (*sql.BookingRepository, error) {
				return sql.NewBookingRepository(db.MustLoad()), nil
			}),
		}, nil
	})
}
