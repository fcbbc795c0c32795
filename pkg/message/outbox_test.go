package message_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/message/stub"
)

func runOutbox(t *testing.T, outbox message.Outbox) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- outbox.Worker(ctx)
	}()

	return func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	}
}

func TestOutbox_RelaysStoredMessages(t *testing.T) {
	t.Parallel()
	storage := stub.NewStorage()
	broker := stub.NewBroker()

	producer := message.NewStorageProducer(storage)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		err := producer.Produce(context.Background(), &message.Message{
			ID:      id,
			Topic:   testTopic,
			Payload: []byte(`{}`),
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, storage.Len())

	outbox := message.NewOutbox(storage, broker, func(o *message.OutboxImpl) {
		o.BatchSize = 2
	})
	stop := runOutbox(t, outbox)
	defer stop()

	assert.Eventually(t, func() bool {
		return storage.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	produced := broker.Produced(testTopic)
	require.Len(t, produced, 3)
	for i, msg := range produced {
		assert.Equal(t, ids[i], msg.ID)
	}
}

func TestOutbox_KeepsMessageUntilBrokerAcceptsIt(t *testing.T) {
	t.Parallel()
	storage := stub.NewStorage()
	broker := stub.NewBroker()

	var failures atomic.Int32
	broker.FailProduce(func(*message.Message) error {
		if failures.Add(1) <= 2 {
			return message.ErrBrokerUnavailable
		}
		return nil
	})

	err := message.NewStorageProducer(storage).Produce(context.Background(), &message.Message{
		ID:      uuid.New(),
		Topic:   testTopic,
		Payload: []byte(`{}`),
	})
	require.NoError(t, err)

	var sendErrors atomic.Int32
	outbox := message.NewOutbox(storage, broker,
		message.WithOutboxRetry(func() backoff.BackOff {
			return backoff.NewConstantBackOff(time.Millisecond)
		}),
		func(o *message.OutboxImpl) {
			o.OnSentMessage = append(o.OnSentMessage, func(_ context.Context, _ *message.Message, err error) {
				if errors.Is(err, message.ErrBrokerUnavailable) {
					sendErrors.Add(1)
				}
			})
		},
	)
	stop := runOutbox(t, outbox)
	defer stop()

	assert.Eventually(t, func() bool {
		return storage.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, broker.Produced(testTopic), 1)
	assert.EqualValues(t, 2, sendErrors.Load())
}

func TestOutbox_PollsMessagesStoredByOtherProcesses(t *testing.T) {
	t.Parallel()
	storage := stub.NewStorage()
	broker := stub.NewBroker()

	outbox := message.NewOutbox(storage, broker, message.WithOutboxPollInterval(10*time.Millisecond))
	stop := runOutbox(t, outbox)
	defer stop()

	err := storage.Store(context.Background(), time.Now(), message.Message{
		ID:      uuid.New(),
		Topic:   testTopic,
		Payload: []byte(`{}`),
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(broker.Produced(testTopic)) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOutbox_WaitsForPollInterval(t *testing.T) {
	t.Parallel()
	storage := stub.NewStorage()
	broker := stub.NewBroker()
	store := func() {
		err := storage.Store(context.Background(), time.Now(), message.Message{
			ID:      uuid.New(),
			Topic:   testTopic,
			Payload: []byte(`{}`),
		})
		require.NoError(t, err)
	}

	store()
	outbox := message.NewOutbox(storage, broker, message.WithOutboxPollInterval(time.Hour))
	stop := runOutbox(t, outbox)
	defer stop()

	require.Eventually(t, func() bool {
		return len(broker.Produced(testTopic)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	store()
	assert.Never(t, func() bool {
		return len(broker.Produced(testTopic)) > 1
	}, 200*time.Millisecond, 10*time.Millisecond)

	outbox.Process()
	assert.Eventually(t, func() bool {
		return len(broker.Produced(testTopic)) == 2
	}, 5*time.Second, 10*time.Millisecond)
}
