package user

import (
	"fmt"
	"time"

	"github.com/klwxsrx/event-booking/internal/pkg/cmd"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/internal/user/app/service"
	"github.com/klwxsrx/event-booking/internal/user/infra"
	"github.com/klwxsrx/event-booking/internal/user/infra/http"
	"github.com/klwxsrx/event-booking/pkg/env"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
	"github.com/klwxsrx/event-booking/pkg/lazy"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/persistence"
	"github.com/klwxsrx/event-booking/pkg/sql"
)

const (
	PublishModeOutbox = "outbox"
	PublishModeDirect = "direct"

	defaultPublishTimeout = 5 * time.Second
)

type DependencyContainer struct {
	UserService lazy.Loader[service.User]

	createUserHandler     lazy.Loader[http.CreateUserHandler]
	getUserByIDHandler    lazy.Loader[http.GetUserByIDHandler]
	deleteUserByIDHandler lazy.Loader[http.DeleteUserByIDHandler]
}

func NewDependencyContainer(
	db lazy.Loader[sql.Database],
	dbMigrations lazy.Loader[cmd.SQLMigrations],
	outboxProducer lazy.Loader[message.Producer],
	broker lazy.Loader[message.Broker],
) DependencyContainer {
	transaction := transactionProvider(db)
	sqlContainer := infra.NewSQLContainer(db, dbMigrations)
	deletionPublisher := deletionPublisherProvider(outboxProducer, broker)
	userService := userServiceProvider(sqlContainer, deletionPublisher, transaction)

	return DependencyContainer{
		UserService: userService,
		createUserHandler: lazy.New(func() (http.CreateUserHandler, error) {
			return http.NewCreateUserHandler(userService.MustLoad()), nil
		}),
		getUserByIDHandler: lazy.New(func() (http.GetUserByIDHandler, error) {
			return http.NewGetUserByIDHandler(userService.MustLoad()), nil
		}),
		deleteUserByIDHandler: lazy.New(func() (http.DeleteUserByIDHandler, error) {
			return http.NewDeleteUserByIDHandler(userService.MustLoad()), nil
		}),
	}
}

func (c *DependencyContainer) MustRegisterHTTPHandlers(registry pkghttp.HandlerRegistry) {
	registry.Register(c.createUserHandler.MustLoad())
	registry.Register(c.getUserByIDHandler.MustLoad())
	registry.Register(c.deleteUserByIDHandler.MustLoad())
}

func transactionProvider(db lazy.Loader[sql.Database]) lazy.Loader[persistence.Transaction] {
	return lazy.New(func() (persistence.Transaction, error) {
		return sql.NewTransaction(db.MustLoad()), nil
	})
}

// deletionPublisherProvider reads USER_DELETION_PUBLISH_MODE, the outbox is used by default.
func deletionPublisherProvider(
	outboxProducer lazy.Loader[message.Producer],
	broker lazy.Loader[message.Broker],
) lazy.Loader[userdeletion.Publisher] {
	return lazy.New(func() (userdeletion.Publisher, error) {
		mode := env.Must(env.ParseOr("USER_DELETION_PUBLISH_MODE", PublishModeOutbox))
		switch mode {
		case PublishModeOutbox:
			return userdeletion.NewPublisher(outboxProducer.MustLoad()), nil
		case PublishModeDirect:
			return userdeletion.NewPublisher(
				broker.MustLoad(),
				userdeletion.WithPublishTimeout(env.Must(env.ParseOr("USER_DELETION_PUBLISH_TIMEOUT", defaultPublishTimeout))),
			), nil
		default:
			return nil, fmt.Errorf("unknown user deletion publish mode %q", mode)
		}
	})
}

func userServiceProvider(
	sqlContainer lazy.Loader[infra.SQLContainer],
	deletionPublisher lazy.Loader[userdeletion.Publisher],
	transaction lazy.Loader[persistence.Transaction],
) lazy.Loader[service.User] {
	return lazy.New(func() (service.User, error) {
		return service.NewUser(
			sqlContainer.MustLoad().UserRepo.MustLoad(),
			deletionPublisher.MustLoad(),
			transaction.MustLoad(),
		), nil
	})
}
