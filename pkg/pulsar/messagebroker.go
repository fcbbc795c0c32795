package pulsar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/retry"
)

const (
	messageIDPropertyName = "message_id"
	healthCheckTopic      = "non-persistent://public/default/health-check"
)

type (
	Config struct {
		Address string
		Retry   retry.Policy
	}

	// Client is the part of pulsar.Client the broker uses.
	Client interface {
		CreateProducer(pulsar.ProducerOptions) (pulsar.Producer, error)
		Subscribe(pulsar.ConsumerOptions) (pulsar.Consumer, error)
		Close()
	}

	Dialer func(pulsar.ClientOptions) (Client, error)
)

// MessageBroker maps topics to persistent pulsar topics and subscribers to shared subscriptions.
type MessageBroker struct {
	client Client

	mutex     sync.Mutex
	producers map[message.Topic]pulsar.Producer
}

func NewMessageBroker(ctx context.Context, config Config, logger log.Logger) (*MessageBroker, error) {
	return NewMessageBrokerWithDialer(ctx, func(opts pulsar.ClientOptions) (Client, error) {
		return pulsar.NewClient(opts)
	}, config, logger)
}

// NewMessageBrokerWithDialer checks the connection with config.Retry, an unreachable broker results in message.ErrBrokerUnavailable.
func NewMessageBrokerWithDialer(ctx context.Context, dial Dialer, config Config, logger log.Logger) (*MessageBroker, error) {
	c, err := dial(pulsar.ClientOptions{
		URL:    fmt.Sprintf("pulsar://%s", config.Address),
		Logger: newClientLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("create pulsar client: %w", err)
	}

	_, err = retry.Connect(ctx, config.Retry, func(context.Context) (struct{}, error) {
		p, err := c.CreateProducer(pulsar.ProducerOptions{Topic: healthCheckTopic})
		if err != nil {
			return struct{}{}, err
		}

		p.Close()
		return struct{}{}, nil
	}, func(attempt int, err error, next time.Duration) {
		logger.With(log.Fields{
			"address": config.Address,
			"attempt": attempt,
			"retryIn": next.String(),
		}).WithError(err).Warn(ctx, "failed to connect to pulsar broker")
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", message.ErrBrokerUnavailable, err)
	}

	return &MessageBroker{
		client:    c,
		producers: make(map[message.Topic]pulsar.Producer),
	}, nil
}

func (b *MessageBroker) Produce(ctx context.Context, msg *message.Message) error {
	producer, err := b.producer(msg.Topic)
	if err != nil {
		return err
	}

	_, err = producer.Send(ctx, &pulsar.ProducerMessage{
		Payload:    msg.Payload,
		Key:        msg.Key,
		Properties: map[string]string{messageIDPropertyName: msg.ID.String()},
	})
	if err != nil {
		return fmt.Errorf("send message %v to %s: %w", msg.ID, msg.Topic, err)
	}

	return nil
}

func (b *MessageBroker) Consumer(
	_ context.Context,
	topic message.Topic,
	subscriber message.SubscriberName,
) (message.Consumer, error) {
	consumer, err := b.client.Subscribe(pulsar.ConsumerOptions{
		Topic:            string(topic),
		SubscriptionName: string(subscriber),
		Type:             pulsar.Shared,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to topic %s by %s: %w", topic, subscriber, err)
	}

	return newMessageConsumer(consumer, topic, subscriber), nil
}

func (b *MessageBroker) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var errs []error
	for _, producer := range b.producers {
		errs = append(errs, producer.Flush())
		producer.Close()
	}
	b.producers = make(map[message.Topic]pulsar.Producer)
	b.client.Close()

	return errors.Join(errs...)
}

func (b *MessageBroker) producer(topic message.Topic) (pulsar.Producer, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	producer, ok := b.producers[topic]
	if ok {
		return producer, nil
	}

	producer, err := b.client.CreateProducer(pulsar.ProducerOptions{
		Topic: string(topic),
	})
	if err != nil {
		return nil, fmt.Errorf("create producer for topic %s: %w", topic, err)
	}

	b.producers[topic] = producer
	return producer, nil
}
