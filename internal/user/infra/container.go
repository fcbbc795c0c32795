package infra

import (
	"github.com/klwxsrx/event-booking/data/sql/user"
	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/user/domain"
	"github.com/klwxsrx/event-booking/internal/user/infra/sql"
	"github.com/klwxsrx/event-booking/pkg/lazy"
	pkgsql "github.com/klwxsrx/event-booking/pkg/sql"
)

type SQLContainer struct {
	UserRepo lazy.Loader[domain.UserRepository]
}

func NewSQLContainer(
	db lazy.Loader[pkgsql.Database],
	dbMigrations lazy.Loader[cmd.SQLMigrations],
) lazy.Loader[SQLContainer] {
	return lazy.New(func() (SQLContainer, error) {
		dbMigrations.MustLoad().MustRegister(user.Migrations)

		return SQLContainer{
			UserRepo: lazy.New(func() (domain.UserRepository, error) {
				return sql.NewUserRepository(db.MustLoad()), nil
			}),
		}, nil
	})
}
