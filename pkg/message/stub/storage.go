package stub

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

type (
	Storage struct {
		mutex    sync.Mutex
		lock     sync.Mutex
		messages []storedMessage
	}

	storedMessage struct {
		message.Message
		ScheduledAt time.Time
	}
)

// NewStorage returns the in-memory outbox storage.
func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) Lock(ctx context.Context, _ ...string) (context.Context, func() error, error) {
	s.lock.Lock()
	return ctx, func() error {
		s.lock.Unlock()
		return nil
	}, nil
}

func (s *Storage) Find(_ context.Context, spec *message.StorageSpecification) ([]message.Message, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sorted := slices.Clone(s.messages)
	slices.SortStableFunc(sorted, func(a, b storedMessage) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})

	var result []message.Message
	for _, msg := range sorted {
		if msg.ScheduledAt.After(spec.ScheduledAtBefore) {
			continue
		}
		if slices.Contains(spec.IDsExcluded, msg.ID) {
			continue
		}
		if len(spec.Topics) > 0 && !slices.Contains(spec.Topics, msg.Topic) {
			continue
		}

		result = append(result, msg.Message)
		if spec.Limit > 0 && len(result) == spec.Limit {
			break
		}
	}

	return result, nil
}

func (s *Storage) Store(_ context.Context, scheduledAt time.Time, msgs ...message.Message) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, msg := range msgs {
		exists := slices.ContainsFunc(s.messages, func(stored storedMessage) bool {
			return stored.ID == msg.ID && stored.Topic == msg.Topic
		})
		if !exists {
			s.messages = append(s.messages, storedMessage{Message: msg, ScheduledAt: scheduledAt})
		}
	}

	return nil
}

func (s *Storage) Delete(_ context.Context, topic message.Topic, ids ...uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.messages = slices.DeleteFunc(s.messages, func(stored storedMessage) bool {
		return stored.Topic == topic && slices.Contains(ids, stored.ID)
	})
	return nil
}

func (s *Storage) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.messages)
}
