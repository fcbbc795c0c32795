package notification

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

const (
	Topic message.Topic = "booking_notifications"

	DateLayout = time.DateOnly

	notificationType = "booking_created"
)

//go:embed schema/booking_notification.json
var bookingNotificationSchema []byte

type BookingNotification struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	EventID        int64     `json:"event_id"`
	Date           string    `json:"date"`
}

func (n BookingNotification) ID() uuid.UUID {
	return n.NotificationID
}

func (n BookingNotification) Type() string {
	return notificationType
}

func NewDeserializer() (message.Deserializer, error) {
	deserializer, err := message.NewJSONSchemaDeserializer[BookingNotification](
		bookingNotificationSchema,
		func(n *BookingNotification, msg *message.Message) error {
			_, err := time.Parse(DateLayout, n.Date)
			if err != nil {
				return fmt.Errorf("parse notification date: %w", err)
			}
			if n.NotificationID == uuid.Nil {
				n.NotificationID = msg.ID
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create booking notification deserializer: %w", err)
	}

	return deserializer, nil
}
