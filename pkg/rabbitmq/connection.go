package rabbitmq

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/retry"
)

const (
	// TopologyQueue publishes to the default exchange with the topic as the queue name.
	// Consumers of all subscribers share the queue.
	TopologyQueue Topology = "queue"
	// TopologyFanout publishes to a fanout exchange named after the topic.
	// Every subscriber consumes its own durable queue "<topic>.<subscriber>".
	TopologyFanout Topology = "fanout"

	defaultPort      = 5672
	defaultHeartbeat = 10 * time.Second
	defaultLocale    = "en_US"
)

type (
	Config struct {
		Host        string
		Port        int
		User        string
		Password    string
		VirtualHost string
		// Prefetch is the QoS prefetch count of consumer channels
		Prefetch          int
		PublisherConfirms bool
		Topology          Topology
		// Subscriptions are the subscriber queues a fanout publisher declares and binds itself,
		// so messages published before the first consumer starts are kept.
		Subscriptions Subscriptions
		Retry         retry.Policy
		Heartbeat         time.Duration
	}

	Topology string

	Subscriptions map[message.Topic][]message.SubscriberName

	// Channel is the subset of *amqp.Channel used by the broker.
	Channel interface {
		Qos(prefetchCount, prefetchSize int, global bool) error
		Confirm(noWait bool) error
		NotifyReturn(c chan amqp.Return) chan amqp.Return
		ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
		QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
		QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
		PublishWithDeferredConfirmWithContext(
			ctx context.Context,
			exchange, key string,
			mandatory, immediate bool,
			msg amqp.Publishing,
		) (*amqp.DeferredConfirmation, error)
		Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
		Close() error
	}

	Connection interface {
		Channel() (Channel, error)
		IsClosed() bool
		Close() error
	}

	Dialer func(context.Context) (Connection, error)

	connection struct {
		*amqp.Connection
	}
)

// URL returns the amqp connection url, credentials and vhost are escaped.
func (c Config) URL() string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	vhost := c.VirtualHost
	if vhost == "" {
		vhost = "/"
	}

	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}.String()
}

// NewDialer dials the broker described by config.
func NewDialer(config Config) Dialer {
	heartbeat := config.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return func(ctx context.Context) (Connection, error) {
		dialer := &net.Dialer{}
		conn, err := amqp.DialConfig(config.URL(), amqp.Config{
			Heartbeat: heartbeat,
			Locale:    defaultLocale,
			Dial: func(network, addr string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
		})
		if err != nil {
			return nil, err
		}

		return connection{conn}, nil
	}
}

func (c connection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// ParseSubscriptions reads a comma separated list of "topic:subscriber" pairs.
func ParseSubscriptions(value string) (Subscriptions, error) {
	result := make(Subscriptions)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		topic, subscriber, ok := strings.Cut(pair, ":")
		topic, subscriber = strings.TrimSpace(topic), strings.TrimSpace(subscriber)
		if !ok || topic == "" || subscriber == "" {
			return nil, fmt.Errorf("invalid subscription %q, topic:subscriber expected", pair)
		}

		result[message.Topic(topic)] = append(result[message.Topic(topic)], message.SubscriberName(subscriber))
	}

	return result, nil
}

func (s Subscriptions) String() string {
	pairs := make([]string, 0, len(s))
	for topic, subscribers := range s {
		for _, subscriber := range subscribers {
			pairs = append(pairs, fmt.Sprintf("%s:%s", topic, subscriber))
		}
	}

	return strings.Join(pairs, ",")
}
