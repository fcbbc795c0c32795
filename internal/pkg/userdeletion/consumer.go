package userdeletion

import (
	"context"
	"fmt"

	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/worker"
)

const subscriberPurpose = "user-deletion"

func SubscriberName(service string) message.SubscriberName {
	return message.NewSubscriberCustomName(service, subscriberPurpose)
}

// NewConsumer subscribes the service to deletion events, every service gets its own copy of an event.
// Instances of the same service compete for the events of their subscription.
func NewConsumer(
	ctx context.Context,
	consumers message.ConsumerProvider,
	service string,
	handler *Handler,
	opts ...message.ListenerOption,
) (worker.ErrorJob, error) {
	deserializer, err := NewDeserializer()
	if err != nil {
		return nil, err
	}

	consumer, err := consumers.Consumer(ctx, Topic, SubscriberName(service))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s to user deletion: %w", service, err)
	}

	return message.NewListener(
		consumer,
		Handlers(handler),
		deserializer,
		opts...,
	), nil
}

func Handlers(handler *Handler) message.Handlers {
	return message.Handlers{}.Register(message.Handle(handler.Handle))
}
