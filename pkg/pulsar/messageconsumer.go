package pulsar

import (
	"context"
	"errors"
	"sync"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

type contextKey int

const pulsarMessageIDContextKey contextKey = iota

var errMessageIDNotFound = errors.New("pulsar message id not found in message context")

type messageConsumer struct {
	pulsar     pulsar.Consumer
	topic      message.Topic
	subscriber message.SubscriberName

	onceDoer  *sync.Once
	closeOnce *sync.Once
	done      chan struct{}
	messages  chan *message.ConsumerMessage
}

func newMessageConsumer(
	pulsarConsumer pulsar.Consumer,
	topic message.Topic,
	subscriber message.SubscriberName,
) message.Consumer {
	return &messageConsumer{
		pulsar:     pulsarConsumer,
		topic:      topic,
		subscriber: subscriber,
		onceDoer:   &sync.Once{},
		closeOnce:  &sync.Once{},
		done:       make(chan struct{}),
		messages:   make(chan *message.ConsumerMessage),
	}
}

func (c *messageConsumer) Topic() message.Topic {
	return c.topic
}

func (c *messageConsumer) Subscriber() message.SubscriberName {
	return c.subscriber
}

func (c *messageConsumer) Messages() <-chan *message.ConsumerMessage {
	c.onceDoer.Do(func() {
		go c.run()
	})

	return c.messages
}

func (c *messageConsumer) Ack(_ context.Context, msg *message.ConsumerMessage) error {
	messageID, ok := msg.Context.Value(pulsarMessageIDContextKey).(pulsar.MessageID)
	if !ok {
		return errMessageIDNotFound
	}

	return c.pulsar.AckID(messageID)
}

func (c *messageConsumer) Nack(_ context.Context, msg *message.ConsumerMessage) error {
	messageID, ok := msg.Context.Value(pulsarMessageIDContextKey).(pulsar.MessageID)
	if !ok {
		return errMessageIDNotFound
	}

	c.pulsar.NackID(messageID)
	return nil
}

func (c *messageConsumer) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.pulsar.Close()
	})

	return nil
}

func (c *messageConsumer) run() {
	defer close(c.messages)

	for {
		var msg pulsar.ConsumerMessage
		var ok bool
		select {
		case msg, ok = <-c.pulsar.Chan():
			if !ok {
				return
			}
		case <-c.done:
			return
		}

		id, err := uuid.Parse(msg.Properties()[messageIDPropertyName])
		if err != nil {
			id = uuid.Nil
		}

		consumerMsg := &message.ConsumerMessage{
			Context: context.WithValue(context.Background(), pulsarMessageIDContextKey, msg.ID()),
			Message: message.Message{
				ID:      id,
				Topic:   c.topic,
				Key:     msg.Key(),
				Payload: msg.Payload(),
			},
		}

		select {
		case c.messages <- consumerMsg:
		case <-c.done:
			return
		}
	}
}
