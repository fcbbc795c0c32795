package cmd

import (
	"fmt"
	"time"

	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/pkg/env"
	"github.com/klwxsrx/event-booking/pkg/http"
	"github.com/klwxsrx/event-booking/pkg/lazy"
	"github.com/klwxsrx/event-booking/pkg/sql"
)

const (
	UserDeletionStrategySQL  = "sql"
	UserDeletionStrategyHTTP = "http"
)

// UserDeletionHandler picks the store by USER_DELETION_STRATEGY.
// The sql strategy deletes in the local database guarded by idempotency keys of consumerName,
// the http strategy relays deletions to the service dest.
func (i *InfrastructureContainer) UserDeletionHandler(
	consumerName string,
	dest http.Destination,
	sqlStore lazy.Loader[userdeletion.DependentRecordStore],
) lazy.Loader[*userdeletion.Handler] {
	return lazy.New(func() (*userdeletion.Handler, error) {
		strategy := env.Must(env.ParseOr("USER_DELETION_STRATEGY", UserDeletionStrategySQL))
		switch strategy {
		case UserDeletionStrategySQL:
			return i.SQLUserDeletionHandler(consumerName, sqlStore).Load()
		case UserDeletionStrategyHTTP:
			client := i.HTTPClientFactory.MustLoad().MustInitClient(
				dest,
				http.WithClientRetry(
					env.Must(env.ParseOr("HTTP_CLIENT_RETRIES", 2)),
					env.Must(env.ParseOr("HTTP_CLIENT_RETRY_WAIT", 500*time.Millisecond)),
				),
			)
			return userdeletion.NewHandler(userdeletion.NewHTTPRelayStore(client)), nil
		default:
			return nil, fmt.Errorf("unknown user deletion strategy %q", strategy)
		}
	})
}

func (i *InfrastructureContainer) SQLUserDeletionHandler(
	consumerName string,
	store lazy.Loader[userdeletion.DependentRecordStore],
) lazy.Loader[*userdeletion.Handler] {
	return lazy.New(func() (*userdeletion.Handler, error) {
		return userdeletion.NewHandler(
			store.MustLoad(),
			userdeletion.WithIdempotencyKeys(
				consumerName,
				i.IdempotencyKeys.MustLoad(),
				sql.NewTransaction(i.DB.MustLoad()),
			),
		), nil
	})
}
