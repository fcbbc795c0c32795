package userdeletion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

var ErrInvalidUserID = errors.New("user id must be positive")

type Publisher interface {
	PublishDeletion(ctx context.Context, userID int64) error
}

type (
	PublisherOption func(*publisher)

	publisher struct {
		producer message.Producer
		timeout  time.Duration
	}
)

// NewPublisher sends one event per call, duplicates are left to the consumers.
// With the outbox producer the event is stored within the transaction of ctx.
func NewPublisher(producer message.Producer, opts ...PublisherOption) Publisher {
	p := publisher{producer: producer}
	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// WithPublishTimeout bounds a single publish including broker reconnects and the publisher confirmation.
// A direct publish runs inside the delete transaction and keeps it open until the broker answers.
func WithPublishTimeout(timeout time.Duration) PublisherOption {
	return func(p *publisher) {
		p.timeout = timeout
	}
}

func (p publisher) PublishDeletion(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, userID)
	}

	msg, err := message.NewJSONMessage(Topic, strconv.FormatInt(userID, 10), DeletionEvent{
		EventID:       uuid.New(),
		SchemaVersion: CurrentSchemaVersion,
		UserID:        userID,
	})
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err = p.producer.Produce(ctx, msg)
	if err != nil {
		return fmt.Errorf("publish deletion of user %d: %w", userID, err)
	}

	return nil
}
