package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

const consumerBufferSize = 1024

var errConsumerClosed = errors.New("consumer closed")

type (
	// Broker is an in-memory broker, every subscriber of a topic receives its own copy of a message.
	// Messages produced before a subscriber appears are delivered to it on subscription, nacked messages are redelivered.
	Broker struct {
		mutex     sync.Mutex
		produced  map[message.Topic][]message.Message
		consumers map[message.Topic]map[message.SubscriberName]*Consumer
		produceFn func(*message.Message) error
	}

	Consumer struct {
		topic      message.Topic
		subscriber message.SubscriberName
		messages   chan *message.ConsumerMessage

		mutex  sync.Mutex
		acked  []uuid.UUID
		nacked []uuid.UUID
		closed bool
	}
)

func NewBroker() *Broker {
	return &Broker{
		produced:  make(map[message.Topic][]message.Message),
		consumers: make(map[message.Topic]map[message.SubscriberName]*Consumer),
	}
}

// FailProduce makes Produce return the result of fn, nil fn restores the default behavior.
func (b *Broker) FailProduce(fn func(*message.Message) error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.produceFn = fn
}

func (b *Broker) Produce(_ context.Context, msg *message.Message) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.produceFn != nil {
		if err := b.produceFn(msg); err != nil {
			return err
		}
	}

	b.produced[msg.Topic] = append(b.produced[msg.Topic], *msg)
	for _, consumer := range b.consumers[msg.Topic] {
		consumer.deliver(*msg)
	}

	return nil
}

func (b *Broker) Consumer(_ context.Context, topic message.Topic, subscriber message.SubscriberName) (message.Consumer, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subscribers, ok := b.consumers[topic]
	if !ok {
		subscribers = make(map[message.SubscriberName]*Consumer)
		b.consumers[topic] = subscribers
	}

	consumer, ok := subscribers[subscriber]
	if ok && !consumer.isClosed() {
		return consumer, nil
	}

	consumer = &Consumer{
		topic:      topic,
		subscriber: subscriber,
		messages:   make(chan *message.ConsumerMessage, consumerBufferSize),
	}
	subscribers[subscriber] = consumer
	for _, msg := range b.produced[topic] {
		consumer.deliver(msg)
	}

	return consumer, nil
}

func (b *Broker) Produced(topic message.Topic) []message.Message {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return append([]message.Message(nil), b.produced[topic]...)
}

func (b *Broker) Close() error {
	return nil
}

func (c *Consumer) Topic() message.Topic {
	return c.topic
}

func (c *Consumer) Subscriber() message.SubscriberName {
	return c.subscriber
}

func (c *Consumer) Messages() <-chan *message.ConsumerMessage {
	return c.messages
}

func (c *Consumer) Ack(_ context.Context, msg *message.ConsumerMessage) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return errConsumerClosed
	}

	c.acked = append(c.acked, msg.Message.ID)
	return nil
}

func (c *Consumer) Nack(_ context.Context, msg *message.ConsumerMessage) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return errConsumerClosed
	}

	c.nacked = append(c.nacked, msg.Message.ID)
	c.deliverLocked(msg.Message)
	return nil
}

func (c *Consumer) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = true
	return nil
}

func (c *Consumer) Acked() []uuid.UUID {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return append([]uuid.UUID(nil), c.acked...)
}

func (c *Consumer) Nacked() []uuid.UUID {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return append([]uuid.UUID(nil), c.nacked...)
}

func (c *Consumer) isClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.closed
}

func (c *Consumer) deliver(msg message.Message) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.deliverLocked(msg)
}

func (c *Consumer) deliverLocked(msg message.Message) {
	if c.closed {
		return
	}

	select {
	case c.messages <- &message.ConsumerMessage{
		Context: context.Background(),
		Message: msg,
	}:
	default:
	}
}
