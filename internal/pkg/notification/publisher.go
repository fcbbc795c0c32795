package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

type Publisher interface {
	PublishBooked(ctx context.Context, userID, eventID int64, bookedAt time.Time) error
}

type publisher struct {
	producer message.Producer
}

func NewPublisher(producer message.Producer) Publisher {
	return publisher{producer: producer}
}

func (p publisher) PublishBooked(ctx context.Context, userID, eventID int64, bookedAt time.Time) error {
	msg, err := message.NewJSONMessage(Topic, strconv.FormatInt(userID, 10), BookingNotification{
		NotificationID: uuid.New(),
		UserID:         userID,
		EventID:        eventID,
		Date:           bookedAt.Format(DateLayout),
	})
	if err != nil {
		return err
	}

	err = p.producer.Produce(ctx, msg)
	if err != nil {
		return fmt.Errorf("publish booking notification of user %d: %w", userID, err)
	}

	return nil
}
