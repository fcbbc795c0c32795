package infra

import (
	"github.com/klwxsrx/event-booking/data/sql/ticketing"
	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/ticketing/infra/sql"
	"github.com/klwxsrx/event-booking/pkg/lazy"
	pkgsql "github.com/klwxsrx/event-booking/pkg/sql"
)

type SQLContainer struct {
	TicketRepo lazy.Loader[*sql.TicketRepository]
}

func NewSQLContainer(
	db lazy.Loader[pkgsql.Database],
	dbMigrations lazy.Loader[cmd.SQLMigrations],
) lazy.Loader[SQLContainer] {
	return lazy.New(func() (SQLContainer, error) {
		dbMigrations.MustLoad().MustRegister(ticketing.Migrations)

		return SQLContainer{
			TicketRepo: lazy.New(func() (*sql.TicketRepository, error) {
				database := db.MustLoad()
				return sql.NewTicketRepository(database, pkgsql.NewTransaction(database)), nil
			}),
		}, nil
	})
}
