package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/klwxsrx/event-booking/internal/pkg/notification"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	pkgcmd "github.com/klwxsrx/event-booking/pkg/cmd"
	"github.com/klwxsrx/event-booking/pkg/env"
	"github.com/klwxsrx/event-booking/pkg/http"
	"github.com/klwxsrx/event-booking/pkg/idk"
	"github.com/klwxsrx/event-booking/pkg/lazy"
	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/metric"
	"github.com/klwxsrx/event-booking/pkg/pulsar"
	"github.com/klwxsrx/event-booking/pkg/rabbitmq"
	"github.com/klwxsrx/event-booking/pkg/retry"
	"github.com/klwxsrx/event-booking/pkg/sql"
	"github.com/klwxsrx/event-booking/pkg/worker"
)

const (
	brokerAMQP   = "amqp"
	brokerPulsar = "pulsar"

	defaultMetricsNamespace = "event_booking"

	ServiceBooking   = "booking"
	ServiceTicketing = "ticketing"
)

type InfrastructureContainer struct {
	HTTPServer             lazy.Loader[http.Server]
	HTTPClientFactory      lazy.Loader[HTTPClientFactory]
	MessageBroker          lazy.Loader[message.Broker]
	MessageOutbox          lazy.Loader[message.Outbox]
	MessageOutboxProducer  lazy.Loader[message.Producer]
	MessageListenerOptions lazy.Loader[[]message.ListenerOption]
	IdempotencyKeys        lazy.Loader[idk.Service]
	IdempotencyKeysCleaner lazy.Loader[idk.Cleaner]
	DBMigrations           lazy.Loader[SQLMigrations]
	DB                     lazy.Loader[sql.Database]
	Metrics                lazy.Loader[*metric.PrometheusMetrics]
	Logger                 lazy.Loader[log.Logger]

	logOutput lazy.Loader[io.WriteCloser]
}

func NewInfrastructureContainer(ctx context.Context) *InfrastructureContainer {
	logOutput := logOutputProvider()
	logger := loggerProvider(logOutput)
	metrics := metricsProvider()

	db := sqlDatabaseProvider(ctx, logger)
	dbMigrations := sqlMigrationsProvider(ctx, db, logger)
	messageStorage := sqlMessageStorageProvider(db, dbMigrations)
	idempotencyKeys := idempotencyKeysProvider(db, dbMigrations)

	msgBroker := messageBrokerProvider(ctx, logger)

	return &InfrastructureContainer{
		HTTPServer:             httpServerProvider(metrics, logger),
		HTTPClientFactory:      httpClientFactoryProvider(metrics, logger),
		MessageBroker:          msgBroker,
		MessageOutbox:          messageOutboxProvider(messageStorage, msgBroker, metrics, logger),
		MessageOutboxProducer:  messageOutboxProducerProvider(messageStorage),
		MessageListenerOptions: messageListenerOptionsProvider(metrics, logger),
		IdempotencyKeys:        lazy.New(func() (idk.Service, error) { return idempotencyKeys.Load() }),
		IdempotencyKeysCleaner: lazy.New(func() (idk.Cleaner, error) { return idempotencyKeys.Load() }),
		DBMigrations:           dbMigrations,
		DB:                     db,
		Metrics:                metrics,
		Logger:                 logger,
		logOutput:              logOutput,
	}
}

// Close releases loaded resources, a panic recovered here is logged and the process exits with 1.
func (i *InfrastructureContainer) Close(ctx context.Context) {
	if pkgcmd.LogAppPanic(ctx, i.Logger.MustLoad(), recover()) {
		defer os.Exit(1)
	}

	i.MessageBroker.IfLoaded(func(broker message.Broker) {
		if err := broker.Close(); err != nil {
			i.Logger.MustLoad().WithError(err).Warn(ctx, "failed to close message broker")
		}
	})
	i.DB.IfLoaded(func(db sql.Database) { db.Close(ctx) })
	i.logOutput.IfLoaded(func(w io.WriteCloser) { _ = w.Close() })
}

// RunWorker serves health and metrics over HTTP next to jobs until a termination signal arrives or a job returns.
func (i *InfrastructureContainer) RunWorker(ctx context.Context, jobs ...worker.ErrorJob) error {
	processes := append([]worker.ErrorJob{i.HTTPServer.MustLoad().Listener}, jobs...)
	return worker.RunHub(ctx, i.Logger.MustLoad(), pkgcmd.TermSignalAwaiter, processes...)
}

func (i *InfrastructureContainer) MustRunWorker(ctx context.Context, jobs ...worker.ErrorJob) {
	if err := i.RunWorker(ctx, jobs...); err != nil {
		panic(fmt.Errorf("worker completed with error: %w", err))
	}
}

// MustRunTask runs a one-shot job. A failure panics, so a deferred Close logs it and exits with 1.
func (i *InfrastructureContainer) MustRunTask(ctx context.Context, task worker.ErrorJob) {
	if err := task(ctx); err != nil {
		panic(fmt.Errorf("task completed with error: %w", err))
	}
}

func logOutputProvider() lazy.Loader[io.WriteCloser] {
	return lazy.New(func() (io.WriteCloser, error) {
		file := env.Must(env.ParseOptional[string]("LOG_FILE"))
		if file == nil {
			return nil, errors.New("log file is not configured")
		}

		return &lumberjack.Logger{
			Filename:   *file,
			MaxSize:    env.Must(env.ParseOr("LOG_FILE_MAX_SIZE_MB", 100)),
			MaxBackups: env.Must(env.ParseOr("LOG_FILE_MAX_BACKUPS", 5)),
			Compress:   true,
		}, nil
	})
}

func loggerProvider(output lazy.Loader[io.WriteCloser]) lazy.Loader[log.Logger] {
	return lazy.New(func() (log.Logger, error) {
		level := log.ParseLevel(env.Must(env.ParseOr("LOG_LEVEL", "info")))

		var opts []log.Option
		if w, err := output.Load(); err == nil {
			opts = append(opts, log.WithOutput(w))
		}

		return log.New(level, opts...), nil
	})
}

func metricsProvider() lazy.Loader[*metric.PrometheusMetrics] {
	return lazy.New(func() (*metric.PrometheusMetrics, error) {
		namespace := env.Must(env.ParseOr("METRICS_NAMESPACE", defaultMetricsNamespace))
		return metric.NewPrometheusMetrics(namespace), nil
	})
}

func sqlDatabaseProvider(
	ctx context.Context,
	logger lazy.Loader[log.Logger],
) lazy.Loader[sql.Database] {
	return lazy.New(func() (sql.Database, error) {
		config := sql.Config{
			DSN: sql.DSN{
				User:     env.Must(env.Parse[string]("SQL_USER")),
				Password: env.Must(env.Parse[string]("SQL_PASSWORD")),
				Address:  env.Must(env.Parse[string]("SQL_ADDRESS")),
				Database: env.Must(env.Parse[string]("SQL_DATABASE")),
				SSLMode:  env.Must(env.ParseOr("SQL_SSL_MODE", "disable")),
			},
			MaxOpenConnections: env.Must(env.ParseOr("SQL_MAX_OPEN_CONNECTIONS", 0)),
			ConnectionTimeout:  env.Must(env.ParseOr[time.Duration]("SQL_CONNECTION_TIMEOUT", 0)),
		}

		db, err := sql.NewDatabase(ctx, config, logger.MustLoad())
		if err != nil {
			panic(fmt.Errorf("open sql connection: %w", err))
		}

		return db, nil
	})
}

func sqlMigrationsProvider(
	ctx context.Context,
	db lazy.Loader[sql.Database],
	logger lazy.Loader[log.Logger],
) lazy.Loader[SQLMigrations] {
	return lazy.New(func() (SQLMigrations, error) {
		return NewSQLMigrations(ctx, db.MustLoad(), logger.MustLoad()), nil
	})
}

func sqlMessageStorageProvider(
	db lazy.Loader[sql.Database],
	dbMigrations lazy.Loader[SQLMigrations],
) lazy.Loader[message.Storage] {
	return lazy.New(func() (message.Storage, error) {
		dbMigrations.MustLoad().MustRegister(sql.MessageStorageMigrations)
		return sql.NewMessageStorage(db.MustLoad()), nil
	})
}

func idempotencyKeysProvider(
	db lazy.Loader[sql.Database],
	dbMigrations lazy.Loader[SQLMigrations],
) lazy.Loader[idk.ServiceImpl] {
	return lazy.New(func() (idk.ServiceImpl, error) {
		dbMigrations.MustLoad().MustRegister(sql.IdempotencyKeyMigrations)

		ttl := env.Must(env.ParseOr("IDEMPOTENCY_KEY_TTL", idk.DefaultKeyTTL))
		return idk.NewService(sql.NewIdempotencyKeyStorage(db.MustLoad()), ttl), nil
	})
}

func brokerRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: env.Must(env.ParseOr("BROKER_CONNECT_MAX_ATTEMPTS", 5)),
		Backoff:     env.Must(env.ParseOr("BROKER_CONNECT_BACKOFF", 5*time.Second)),
		Forever:     env.Must(env.ParseOr("BROKER_CONNECT_FOREVER", false)),
	}
}

func messageBrokerProvider(
	ctx context.Context,
	logger lazy.Loader[log.Logger],
) lazy.Loader[message.Broker] {
	return lazy.New(func() (message.Broker, error) {
		kind := env.Must(env.ParseOr("MESSAGE_BROKER", brokerAMQP))
		switch kind {
		case brokerAMQP:
			return rabbitMQMessageBroker(ctx, logger.MustLoad())
		case brokerPulsar:
			return pulsarMessageBroker(ctx, logger.MustLoad())
		default:
			panic(fmt.Errorf("unknown message broker %q", kind))
		}
	})
}

func rabbitMQMessageBroker(ctx context.Context, logger log.Logger) (message.Broker, error) {
	config := rabbitmq.Config{
		Host:              env.Must(env.ParseOr("RABBITMQ_HOST", "localhost")),
		Port:              env.Must(env.ParseOr("RABBITMQ_PORT", 5672)),
		User:              env.Must(env.ParseOr("RABBITMQ_USER", "guest")),
		Password:          env.Must(env.ParseOr("RABBITMQ_PASSWORD", "guest")),
		VirtualHost:       env.Must(env.ParseOr("RABBITMQ_VHOST", "/")),
		Prefetch:          env.Must(env.ParseOr("MESSAGE_HANDLER_CONCURRENCY", 1)),
		PublisherConfirms: env.Must(env.ParseOr("RABBITMQ_PUBLISHER_CONFIRMS", true)),
		Topology:          rabbitmq.Topology(env.Must(env.ParseOr("RABBITMQ_TOPOLOGY", string(rabbitmq.TopologyFanout)))),
		Retry:             brokerRetryPolicy(),
	}

	subscriptions, err := rabbitmq.ParseSubscriptions(env.Must(env.ParseOr("RABBITMQ_SUBSCRIPTIONS", defaultSubscriptions().String())))
	if err != nil {
		return nil, fmt.Errorf("parse RABBITMQ_SUBSCRIPTIONS: %w", err)
	}
	config.Subscriptions = subscriptions

	broker, err := rabbitmq.NewMessageBroker(ctx, config, logger)
	if err != nil {
		panic(fmt.Errorf("open rabbitmq connection: %w", err))
	}

	return broker, nil
}

// defaultSubscriptions lists every consumer of the deployment.
func defaultSubscriptions() rabbitmq.Subscriptions {
	return rabbitmq.Subscriptions{
		userdeletion.Topic: {
			userdeletion.SubscriberName(ServiceBooking),
			userdeletion.SubscriberName(ServiceTicketing),
		},
		notification.Topic: {
			notification.SubscriberName(ServiceBooking),
		},
	}
}

func pulsarMessageBroker(ctx context.Context, logger log.Logger) (message.Broker, error) {
	config := pulsar.Config{
		Address: env.Must(env.Parse[string]("PULSAR_ADDRESS")),
		Retry:   brokerRetryPolicy(),
	}

	broker, err := pulsar.NewMessageBroker(ctx, config, logger.WithField("component", "pulsar"))
	if err != nil {
		panic(fmt.Errorf("open pulsar connection: %w", err))
	}

	return broker, nil
}

func messageOutboxProvider(
	storage lazy.Loader[message.Storage],
	broker lazy.Loader[message.Broker],
	metrics lazy.Loader[*metric.PrometheusMetrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[message.Outbox] {
	return lazy.New(func() (message.Outbox, error) {
		return message.NewOutbox(
			storage.MustLoad(),
			broker.MustLoad(),
			message.WithOutboxPollInterval(env.Must(env.ParseOr("MESSAGE_OUTBOX_POLL_INTERVAL", time.Second))),
			message.WithOutboxMetrics(metrics.MustLoad()),
			message.WithOutboxLogging(logger.MustLoad(), log.LevelInfo, log.LevelWarn),
		), nil
	})
}

func messageOutboxProducerProvider(storage lazy.Loader[message.Storage]) lazy.Loader[message.Producer] {
	return lazy.New(func() (message.Producer, error) {
		return message.NewStorageProducer(storage.MustLoad()), nil
	})
}

func messageListenerOptionsProvider(
	metrics lazy.Loader[*metric.PrometheusMetrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[[]message.ListenerOption] {
	return lazy.New(func() ([]message.ListenerOption, error) {
		retries := env.Must(env.ParseOr("MESSAGE_HANDLER_RETRIES", 3))
		return []message.ListenerOption{
			message.WithHandlerTimeout(env.Must(env.ParseOr("MESSAGE_HANDLER_TIMEOUT", 30*time.Second))),
			message.WithHandlerConcurrency(env.Must(env.ParseOr("MESSAGE_HANDLER_CONCURRENCY", 1))),
			message.WithHandlerRetry(func() backoff.BackOff {
				return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
					backoff.WithInitialInterval(100*time.Millisecond),
					backoff.WithMaxInterval(5*time.Second),
					backoff.WithMaxElapsedTime(0),
				), uint64(max(retries, 0)))
			}),
			message.WithHandlerIdempotencyKeyErrorIgnoring(),
			message.WithHandlerMetrics(metrics.MustLoad()),
			message.WithHandlerLogging(logger.MustLoad(), log.LevelInfo, log.LevelError),
		}, nil
	})
}

func httpServerProvider(
	metrics lazy.Loader[*metric.PrometheusMetrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[http.Server] {
	return lazy.New(func() (http.Server, error) {
		return http.NewServer(
			env.Must(env.ParseOr("HTTP_ADDRESS", http.DefaultServerAddress)),
			http.WithHealthCheck(nil),
			http.WithMetricsHandler(metrics.MustLoad().HTTPHandler()),
			http.WithRequestID(),
			http.WithMetrics(metrics.MustLoad()),
			http.WithLogging(logger.MustLoad(), log.LevelInfo, log.LevelError),
		), nil
	})
}

func httpClientFactoryProvider(
	metrics lazy.Loader[*metric.PrometheusMetrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[HTTPClientFactory] {
	return lazy.New(func() (HTTPClientFactory, error) {
		return NewHTTPClientFactory(
			http.WithClientTimeout(env.Must(env.ParseOr("HTTP_CLIENT_TIMEOUT", 10*time.Second))),
			http.WithRequestIDPropagation(),
			http.WithRequestMetrics(metrics.MustLoad()),
			http.WithRequestLogging(logger.MustLoad(), log.LevelInfo, log.LevelWarn),
		), nil
	})
}
