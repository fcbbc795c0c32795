package message

import (
	"context"
	"errors"
)

var ErrBrokerUnavailable = errors.New("message broker unavailable")

type (
	ConsumerMessage struct {
		Context context.Context
		Message Message
	}

	// Consumer delivers messages with at-least-once semantics, every message must be either acked or nacked.
	// Nacked messages are redelivered.
	Consumer interface {
		Topic() Topic
		Subscriber() SubscriberName
		Messages() <-chan *ConsumerMessage
		Ack(context.Context, *ConsumerMessage) error
		Nack(context.Context, *ConsumerMessage) error
		Close() error
	}

	ConsumerProvider interface {
		Consumer(context.Context, Topic, SubscriberName) (Consumer, error)
	}

	Producer interface {
		Produce(ctx context.Context, msg *Message) error
	}

	Broker interface {
		ConsumerProvider
		Producer
		Close() error
	}
)
