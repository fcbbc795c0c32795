package userdeletion_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/pkg/idk"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/message/stub"
	persistencestub "github.com/klwxsrx/event-booking/pkg/persistence/stub"
)

type memoryStore struct {
	mutex   sync.Mutex
	records map[int64]int
	deletes int
}

func newMemoryStore(records map[int64]int) *memoryStore {
	return &memoryStore{records: records}
}

func (s *memoryStore) DeleteByUser(_ context.Context, userID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.deletes++
	delete(s.records, userID)
	return nil
}

func (s *memoryStore) snapshot() (map[int64]int, int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records := make(map[int64]int, len(s.records))
	for k, v := range s.records {
		records[k] = v
	}
	return records, s.deletes
}

type memoryKeyStorage struct {
	mutex sync.Mutex
	keys  map[string]struct{}
}

func (s *memoryKeyStorage) Insert(_ context.Context, key uuid.UUID, extraKey string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	id := key.String() + extraKey
	if _, ok := s.keys[id]; ok {
		return idk.ErrAlreadyInserted
	}
	s.keys[id] = struct{}{}
	return nil
}

func (s *memoryKeyStorage) Delete(context.Context, time.Time) error {
	return nil
}

func runConsumer(
	t *testing.T,
	broker *stub.Broker,
	service string,
	handler *userdeletion.Handler,
) (stop func() error) {
	t.Helper()

	job, err := userdeletion.NewConsumer(
		context.Background(),
		broker,
		service,
		handler,
		message.WithHandlerRetry(func() backoff.BackOff { return &backoff.StopBackOff{} }),
		message.WithHandlerIdempotencyKeyErrorIgnoring(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- job(ctx)
	}()

	return func() error {
		cancel()
		select {
		case err := <-result:
			return err
		case <-time.After(5 * time.Second):
			return errors.New("consumer did not stop")
		}
	}
}

func subscription(t *testing.T, broker *stub.Broker, service string) *stub.Consumer {
	t.Helper()

	consumer, err := broker.Consumer(context.Background(), userdeletion.Topic, userdeletion.SubscriberName(service))
	require.NoError(t, err)
	return consumer.(*stub.Consumer)
}

func TestConsumer_EveryServiceDeletesRecordsOfUser(t *testing.T) {
	t.Parallel()
	broker := stub.NewBroker()
	bookings := newMemoryStore(map[int64]int{42: 3, 7: 1})
	tickets := newMemoryStore(map[int64]int{42: 2, 7: 5})

	stopBooking := runConsumer(t, broker, "booking", userdeletion.NewHandler(bookings))
	stopTicketing := runConsumer(t, broker, "ticketing", userdeletion.NewHandler(tickets))

	require.NoError(t, userdeletion.NewPublisher(broker).PublishDeletion(context.Background(), 42))

	for _, store := range []*memoryStore{bookings, tickets} {
		assert.Eventually(t, func() bool {
			_, deletes := store.snapshot()
			return deletes == 1
		}, 5*time.Second, 10*time.Millisecond)
	}
	bookingRecords, _ := bookings.snapshot()
	ticketRecords, _ := tickets.snapshot()
	assert.Equal(t, map[int64]int{7: 1}, bookingRecords)
	assert.Equal(t, map[int64]int{7: 5}, ticketRecords)

	assert.Eventually(t, func() bool {
		return len(subscription(t, broker, "booking").Acked()) == 1 &&
			len(subscription(t, broker, "ticketing").Acked()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.NoError(t, stopBooking())
	assert.NoError(t, stopTicketing())
}

func TestConsumer_DuplicateEventIsHandledOnce(t *testing.T) {
	t.Parallel()
	broker := stub.NewBroker()
	bookings := newMemoryStore(map[int64]int{42: 3})
	handler := userdeletion.NewHandler(
		bookings,
		userdeletion.WithIdempotencyKeys(
			"booking-user-deletion",
			idk.NewService(&memoryKeyStorage{}, time.Hour),
			persistencestub.NewTransaction(),
		),
	)

	msg, err := message.NewJSONMessage(userdeletion.Topic, "42", userdeletion.DeletionEvent{
		EventID:       uuid.New(),
		SchemaVersion: userdeletion.CurrentSchemaVersion,
		UserID:        42,
	})
	require.NoError(t, err)
	require.NoError(t, broker.Produce(context.Background(), msg))
	require.NoError(t, broker.Produce(context.Background(), msg))

	stop := runConsumer(t, broker, "booking", handler)

	assert.Eventually(t, func() bool {
		return len(subscription(t, broker, "booking").Acked()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	_, deletes := bookings.snapshot()
	assert.Equal(t, 1, deletes)
	assert.Empty(t, subscription(t, broker, "booking").Nacked())

	assert.NoError(t, stop())
}

func TestConsumer_MalformedMessageIsDropped(t *testing.T) {
	t.Parallel()
	broker := stub.NewBroker()
	bookings := newMemoryStore(map[int64]int{42: 3})

	require.NoError(t, broker.Produce(context.Background(), &message.Message{
		ID:      uuid.New(),
		Topic:   userdeletion.Topic,
		Payload: []byte(`{}`),
	}))
	require.NoError(t, broker.Produce(context.Background(), &message.Message{
		ID:      uuid.New(),
		Topic:   userdeletion.Topic,
		Payload: []byte(`{"user_id":42}`),
	}))

	stop := runConsumer(t, broker, "booking", userdeletion.NewHandler(bookings))

	assert.Eventually(t, func() bool {
		return len(subscription(t, broker, "booking").Acked()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	records, deletes := bookings.snapshot()
	assert.Equal(t, 1, deletes)
	assert.Empty(t, records)
	assert.Empty(t, subscription(t, broker, "booking").Nacked())

	assert.NoError(t, stop())
}
