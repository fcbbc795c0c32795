package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/retry"
)

const (
	contentTypeJSON   = "application/json"
	returnsBufferSize = 16
)

var (
	ErrQueueDeclarationMismatch = errors.New("queue declared with different parameters")
	ErrPublishNotConfirmed      = errors.New("publish not confirmed by broker")
	ErrMessageUnroutable        = errors.New("message returned by broker as unroutable")
	errBrokerClosed             = errors.New("broker closed")
)

// MessageBroker owns a single connection, it is reopened with the retry policy when lost.
// Routing of a topic depends on Config.Topology.
type MessageBroker struct {
	config Config
	dial   Dialer
	logger log.Logger

	mutex         sync.Mutex
	conn          Connection
	publisher     Channel
	returns       chan amqp.Return
	declared      map[message.Topic]struct{}
	closed        bool
	consumerMutex sync.Mutex
	consumers     []*messageConsumer
}

func NewMessageBroker(ctx context.Context, config Config, logger log.Logger) (*MessageBroker, error) {
	amqp.SetLogger(newLoggerAdapter(logger))
	return NewMessageBrokerWithDialer(ctx, NewDialer(config), config, logger)
}

// NewMessageBrokerWithDialer connects with config.Retry, an unreachable broker results in message.ErrBrokerUnavailable.
func NewMessageBrokerWithDialer(ctx context.Context, dial Dialer, config Config, logger log.Logger) (*MessageBroker, error) {
	b := &MessageBroker{
		config:   config,
		dial:     dial,
		logger:   logger,
		declared: make(map[message.Topic]struct{}),
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	_, err := b.connection(ctx)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (b *MessageBroker) Produce(ctx context.Context, msg *message.Message) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	err := b.publish(ctx, msg)
	if err == nil || !isConnectionError(err) {
		return err
	}

	b.resetPublisher()
	b.logger.WithError(err).Warn(ctx, "amqp publish failed on closed channel, retrying with new channel")
	return b.publish(ctx, msg)
}

func (b *MessageBroker) Consumer(
	ctx context.Context,
	topic message.Topic,
	subscriber message.SubscriberName,
) (message.Consumer, error) {
	b.mutex.Lock()
	conn, err := b.connection(ctx)
	b.mutex.Unlock()
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}

	deliveries, err := b.subscribe(ch, topic, subscriber)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	consumer := newMessageConsumer(ch, deliveries, topic, subscriber)
	b.consumerMutex.Lock()
	b.consumers = append(b.consumers, consumer)
	b.consumerMutex.Unlock()

	return consumer, nil
}

func (b *MessageBroker) Close() error {
	b.consumerMutex.Lock()
	consumers := b.consumers
	b.consumers = nil
	b.consumerMutex.Unlock()

	var errs []error
	for _, consumer := range consumers {
		errs = append(errs, consumer.Close())
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.closed = true
	b.resetPublisher()
	if b.conn != nil && !b.conn.IsClosed() {
		errs = append(errs, b.conn.Close())
	}
	b.conn = nil

	return errors.Join(errs...)
}

func (b *MessageBroker) subscribe(
	ch Channel,
	topic message.Topic,
	subscriber message.SubscriberName,
) (<-chan amqp.Delivery, error) {
	if b.config.Prefetch > 0 {
		err := ch.Qos(b.config.Prefetch, 0, false)
		if err != nil {
			return nil, fmt.Errorf("set consumer prefetch: %w", err)
		}
	}

	queue, err := b.declareSubscription(ch, topic, subscriber)
	if err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(queue, consumerTag(subscriber), false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume queue %s: %w", queue, err)
	}

	return deliveries, nil
}

func (b *MessageBroker) publish(ctx context.Context, msg *message.Message) error {
	ch, err := b.publishChannel(ctx)
	if err != nil {
		return err
	}

	if _, ok := b.declared[msg.Topic]; !ok {
		err = b.declareTopic(ch, msg.Topic)
		if err != nil {
			b.resetPublisher()
			return err
		}
		b.declared[msg.Topic] = struct{}{}
	}

	exchange, routingKey := b.route(msg.Topic)
	mandatory := b.returns != nil
	confirmation, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		exchange,
		routingKey,
		mandatory,
		false,
		amqp.Publishing{
			ContentType:   contentTypeJSON,
			DeliveryMode:  amqp.Persistent,
			MessageId:     msg.ID.String(),
			CorrelationId: msg.Key,
			Timestamp:     time.Now(),
			Body:          msg.Payload,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message %v to %s: %w", msg.ID, msg.Topic, err)
	}

	if confirmation != nil {
		acked, err := confirmation.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("wait publish confirmation of %v: %w", msg.ID, err)
		}
		if !acked {
			return fmt.Errorf("%w: message %v to %s", ErrPublishNotConfirmed, msg.ID, msg.Topic)
		}
	}

	return b.checkReturned(msg)
}

// checkReturned must run after the confirmation: the broker sends basic.return before basic.ack.
func (b *MessageBroker) checkReturned(msg *message.Message) error {
	if b.returns == nil {
		return nil
	}

	for {
		select {
		case ret, ok := <-b.returns:
			if !ok {
				return nil
			}
			if ret.MessageId == msg.ID.String() {
				return fmt.Errorf("%w: message %v to %s: %s", ErrMessageUnroutable, msg.ID, msg.Topic, ret.ReplyText)
			}
		default:
			return nil
		}
	}
}

func (b *MessageBroker) publishChannel(ctx context.Context) (Channel, error) {
	if b.publisher != nil {
		return b.publisher, nil
	}

	conn, err := b.connection(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	b.returns = nil
	if b.config.PublisherConfirms {
		err = ch.Confirm(false)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("enable publisher confirms: %w", err)
		}
		// returns are only read after a confirmation, an unconfirmed channel would block the connection on a full buffer
		b.returns = ch.NotifyReturn(make(chan amqp.Return, returnsBufferSize))
	}

	b.publisher = ch
	return ch, nil
}

func (b *MessageBroker) connection(ctx context.Context) (Connection, error) {
	if b.closed {
		return nil, errBrokerClosed
	}
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}

	b.publisher = nil
	b.returns = nil
	b.declared = make(map[message.Topic]struct{})

	conn, err := retry.Connect(ctx, b.config.Retry, b.dial, func(attempt int, err error, next time.Duration) {
		b.logger.With(log.Fields{
			"host":    b.config.Host,
			"attempt": attempt,
			"retryIn": next.String(),
		}).WithError(err).Warn(ctx, "failed to connect to amqp broker")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", message.ErrBrokerUnavailable, err)
	}

	b.conn = conn
	b.logger.WithField("host", b.config.Host).Info(ctx, "connected to amqp broker")
	return conn, nil
}

func (b *MessageBroker) resetPublisher() {
	if b.publisher != nil {
		_ = b.publisher.Close()
	}
	b.publisher = nil
	b.returns = nil
	b.declared = make(map[message.Topic]struct{})
}

func (b *MessageBroker) route(topic message.Topic) (exchange, routingKey string) {
	if b.config.Topology == TopologyFanout {
		return string(topic), ""
	}
	return "", string(topic)
}

func (b *MessageBroker) declareTopic(ch Channel, topic message.Topic) error {
	if b.config.Topology != TopologyFanout {
		return declareQueue(ch, string(topic))
	}

	err := declareExchange(ch, string(topic))
	if err != nil {
		return err
	}

	for _, subscriber := range b.config.Subscriptions[topic] {
		_, err = bindSubscriberQueue(ch, topic, subscriber)
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *MessageBroker) declareSubscription(
	ch Channel,
	topic message.Topic,
	subscriber message.SubscriberName,
) (string, error) {
	if b.config.Topology != TopologyFanout {
		return string(topic), declareQueue(ch, string(topic))
	}

	err := declareExchange(ch, string(topic))
	if err != nil {
		return "", err
	}

	return bindSubscriberQueue(ch, topic, subscriber)
}

func bindSubscriberQueue(ch Channel, topic message.Topic, subscriber message.SubscriberName) (string, error) {
	queue := fmt.Sprintf("%s.%s", topic, subscriber)
	err := declareQueue(ch, queue)
	if err != nil {
		return "", err
	}

	err = ch.QueueBind(queue, "", string(topic), false, nil)
	if err != nil {
		return "", fmt.Errorf("bind queue %s to exchange %s: %w", queue, topic, err)
	}

	return queue, nil
}

func declareExchange(ch Channel, name string) error {
	err := ch.ExchangeDeclare(name, amqp.ExchangeFanout, true, false, false, false, nil)
	if err == nil {
		return nil
	}
	if isPreconditionFailed(err) {
		return fmt.Errorf("%w: exchange %s: %w", ErrQueueDeclarationMismatch, name, err)
	}

	return fmt.Errorf("declare exchange %s: %w", name, err)
}

func declareQueue(ch Channel, name string) error {
	_, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err == nil {
		return nil
	}
	if isPreconditionFailed(err) {
		return fmt.Errorf("%w: %s: %w", ErrQueueDeclarationMismatch, name, err)
	}

	return fmt.Errorf("declare queue %s: %w", name, err)
}

func isPreconditionFailed(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) && amqpErr.Code == amqp.PreconditionFailed
}

func isConnectionError(err error) bool {
	if errors.Is(err, amqp.ErrClosed) {
		return true
	}

	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) && amqpErr.Code == amqp.ChannelError
}
