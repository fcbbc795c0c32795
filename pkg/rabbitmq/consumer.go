package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/klwxsrx/event-booking/pkg/message"
)

type contextKey int

const deliveryContextKey contextKey = iota

var errDeliveryNotFound = errors.New("amqp delivery not found in message context")

type messageConsumer struct {
	channel    Channel
	topic      message.Topic
	subscriber message.SubscriberName
	messages   chan *message.ConsumerMessage

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newMessageConsumer(
	ch Channel,
	deliveries <-chan amqp.Delivery,
	topic message.Topic,
	subscriber message.SubscriberName,
) *messageConsumer {
	c := &messageConsumer{
		channel:    ch,
		topic:      topic,
		subscriber: subscriber,
		messages:   make(chan *message.ConsumerMessage),
		done:       make(chan struct{}),
	}

	go c.run(deliveries)
	return c
}

func (c *messageConsumer) Topic() message.Topic {
	return c.topic
}

func (c *messageConsumer) Subscriber() message.SubscriberName {
	return c.subscriber
}

// Messages is closed when the channel is closed by the broker or by Close.
func (c *messageConsumer) Messages() <-chan *message.ConsumerMessage {
	return c.messages
}

func (c *messageConsumer) Ack(_ context.Context, msg *message.ConsumerMessage) error {
	delivery, err := deliveryFromMessage(msg)
	if err != nil {
		return err
	}

	return delivery.Ack(false)
}

// Nack requeues the message.
func (c *messageConsumer) Nack(_ context.Context, msg *message.ConsumerMessage) error {
	delivery, err := deliveryFromMessage(msg)
	if err != nil {
		return err
	}

	return delivery.Nack(false, true)
}

func (c *messageConsumer) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		err := c.channel.Close()
		if err != nil && !errors.Is(err, amqp.ErrClosed) {
			c.closeErr = fmt.Errorf("close consumer channel %s/%s: %w", c.subscriber, c.topic, err)
		}
	})

	return c.closeErr
}

func (c *messageConsumer) run(deliveries <-chan amqp.Delivery) {
	defer close(c.messages)

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}

			select {
			case c.messages <- c.consumerMessage(delivery):
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *messageConsumer) consumerMessage(delivery amqp.Delivery) *message.ConsumerMessage {
	id, err := uuid.Parse(delivery.MessageId)
	if err != nil {
		id = uuid.Nil
	}

	return &message.ConsumerMessage{
		Context: context.WithValue(context.Background(), deliveryContextKey, delivery),
		Message: message.Message{
			ID:      id,
			Topic:   c.topic,
			Key:     delivery.CorrelationId,
			Payload: delivery.Body,
		},
	}
}

func deliveryFromMessage(msg *message.ConsumerMessage) (amqp.Delivery, error) {
	if msg.Context == nil {
		return amqp.Delivery{}, errDeliveryNotFound
	}

	delivery, ok := msg.Context.Value(deliveryContextKey).(amqp.Delivery)
	if !ok {
		return amqp.Delivery{}, errDeliveryNotFound
	}

	return delivery, nil
}

func consumerTag(subscriber message.SubscriberName) string {
	return fmt.Sprintf("%s-%s", subscriber, uuid.NewString())
}
