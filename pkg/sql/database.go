package sql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/klwxsrx/event-booking/pkg/log"
)

const defaultConnectionTimeout = 20 * time.Second

type (
	Config struct {
		DSN                DSN
		MaxOpenConnections int
		ConnectionTimeout  time.Duration
	}

	DSN struct {
		User     string
		Password string
		Address  string
		Database string
		SSLMode  string
	}

	Client interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		GetContext(ctx context.Context, dest any, query string, args ...any) error
		SelectContext(ctx context.Context, dest any, query string, args ...any) error
	}

	ClientTx interface {
		Client
		Commit() error
		Rollback() error
	}

	// Database routes queries to the transaction or the dedicated connection stored in ctx, if any.
	Database interface {
		Client
		Begin(ctx context.Context) (ClientTx, error)
		WithinSingleConnection(ctx context.Context) (_ context.Context, release func(), _ error)
		Close(ctx context.Context)
	}
)

func (d DSN) String() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Address,
		Path:     d.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}

type database struct {
	db     *sqlx.DB
	logger log.Logger
}

func NewDatabase(ctx context.Context, config Config, logger log.Logger) (Database, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = defaultConnectionTimeout
	}

	db, err := openConnection(ctx, config)
	if err != nil {
		return nil, err
	}

	enablePostgreSQLSquirrelPlaceholderFormat()
	return &database{
		db:     db,
		logger: logger,
	}, nil
}

// WrapDatabase serves a connection pool opened elsewhere, e.g. by another driver.
// Squirrel placeholders are left as configured.
func WrapDatabase(db *sqlx.DB, logger log.Logger) Database {
	return &database{
		db:     db,
		logger: logger,
	}
}

func (d *database) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.client(ctx).ExecContext(ctx, query, args...)
}

func (d *database) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.client(ctx).GetContext(ctx, dest, query, args...)
}

func (d *database) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.client(ctx).SelectContext(ctx, dest, query, args...)
}

func (d *database) Begin(ctx context.Context) (ClientTx, error) {
	if conn, ok := ctx.Value(dbConnectionContextKey).(*sqlx.Conn); ok {
		return conn.BeginTxx(ctx, nil)
	}

	return d.db.BeginTxx(ctx, nil)
}

func (d *database) WithinSingleConnection(ctx context.Context) (context.Context, func(), error) {
	if _, ok := ctx.Value(dbConnectionContextKey).(*sqlx.Conn); ok {
		return ctx, func() {}, nil
	}

	conn, err := d.db.Connx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get db connection: %w", err)
	}

	return context.WithValue(ctx, dbConnectionContextKey, conn), func() {
		err := conn.Close()
		if err != nil {
			d.logger.WithError(err).Error(ctx, "failed to release db connection")
		}
	}, nil
}

func (d *database) Close(ctx context.Context) {
	err := d.db.Close()
	if err != nil {
		d.logger.WithError(err).Error(ctx, "failed to close sql database")
	}
}

func (d *database) client(ctx context.Context) Client {
	if tx, ok := ctx.Value(dbTransactionContextKey).(txData); ok && tx.db == d {
		return tx.ClientTx
	}
	if conn, ok := ctx.Value(dbConnectionContextKey).(*sqlx.Conn); ok {
		return conn
	}

	return d.db
}

func openConnection(ctx context.Context, config Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", config.DSN.String())
	if err != nil {
		return nil, err
	}
	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}

	eb := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithRandomizationFactor(0),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(config.ConnectionTimeout/4),
		backoff.WithMaxElapsedTime(config.ConnectionTimeout),
	)

	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

var squirrelPlaceholderOnceDoer = &sync.Once{}

func enablePostgreSQLSquirrelPlaceholderFormat() {
	squirrelPlaceholderOnceDoer.Do(func() {
		sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	})
}
