package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/event-booking/internal/pkg/sqltest"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/sql"
)

const (
	userDeletionTopic message.Topic = "user_deletion"
	notificationTopic message.Topic = "booking_notification"
)

func newOutboxMessage(topic message.Topic) message.Message {
	return message.Message{
		ID:      uuid.New(),
		Topic:   topic,
		Key:     "42",
		Payload: []byte(`{"user_id":42}`),
	}
}

func TestMessageStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := sql.NewMessageStorage(sqltest.Open(t, sql.MessageStorageMigrations))
	now := time.Now().UTC().Truncate(time.Second)

	first := newOutboxMessage(userDeletionTopic)
	second := newOutboxMessage(userDeletionTopic)
	notification := newOutboxMessage(notificationTopic)
	delayed := newOutboxMessage(userDeletionTopic)

	require.NoError(t, storage.Store(ctx, now.Add(-2*time.Minute), first))
	require.NoError(t, storage.Store(ctx, now.Add(-time.Minute), second, notification))
	require.NoError(t, storage.Store(ctx, now.Add(time.Hour), delayed))
	require.NoError(t, storage.Store(ctx, now, first), "a stored message id is kept once")

	msgs, err := storage.Find(ctx, &message.StorageSpecification{ScheduledAtBefore: now})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, first, msgs[0])
	assert.ElementsMatch(t, []message.Message{second, notification}, msgs[1:])

	msgs, err = storage.Find(ctx, &message.StorageSpecification{
		IDsExcluded:       []uuid.UUID{first.ID},
		Topics:            []message.Topic{userDeletionTopic},
		ScheduledAtBefore: now,
	})
	require.NoError(t, err)
	assert.Equal(t, []message.Message{second}, msgs)

	msgs, err = storage.Find(ctx, &message.StorageSpecification{ScheduledAtBefore: now.Add(2 * time.Hour), Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []message.Message{first}, msgs)

	require.NoError(t, storage.Delete(ctx, notificationTopic, first.ID, notification.ID))
	require.NoError(t, storage.Delete(ctx, userDeletionTopic))

	msgs, err = storage.Find(ctx, &message.StorageSpecification{ScheduledAtBefore: now.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []message.Message{first, second, delayed}, msgs)
}

func TestMessageStorage_Store_RejectsMessageWithoutTopic(t *testing.T) {
	t.Parallel()
	storage := sql.NewMessageStorage(sqltest.Open(t, sql.MessageStorageMigrations))

	err := storage.Store(context.Background(), time.Now().UTC(), newOutboxMessage(userDeletionTopic), newOutboxMessage(""))
	assert.Error(t, err)

	msgs, err := storage.Find(context.Background(), &message.StorageSpecification{ScheduledAtBefore: time.Now().UTC()})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
