package notification

import (
	"context"
	"fmt"

	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/worker"
)

const subscriberPurpose = "booking-notification"

type Sender interface {
	Send(ctx context.Context, n BookingNotification) error
}

type logSender struct {
	logger log.Logger
}

// NewLogSender delivers notifications to the log.
func NewLogSender(logger log.Logger) Sender {
	return logSender{logger: logger}
}

func (s logSender) Send(ctx context.Context, n BookingNotification) error {
	s.logger.With(log.Fields{
		"notificationID": n.NotificationID,
		"userID":         n.UserID,
		"eventID":        n.EventID,
		"date":           n.Date,
	}).Info(ctx, "user booked event")
	return nil
}

func SubscriberName(service string) message.SubscriberName {
	return message.NewSubscriberCustomName(service, subscriberPurpose)
}

func NewConsumer(
	ctx context.Context,
	consumers message.ConsumerProvider,
	service string,
	sender Sender,
	opts ...message.ListenerOption,
) (worker.ErrorJob, error) {
	deserializer, err := NewDeserializer()
	if err != nil {
		return nil, err
	}

	consumer, err := consumers.Consumer(ctx, Topic, SubscriberName(service))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s to booking notifications: %w", service, err)
	}

	return message.NewListener(
		consumer,
		message.Handlers{}.Register(message.Handle(sender.Send)),
		deserializer,
		opts...,
	), nil
}
