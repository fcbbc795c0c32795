package notification_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/event-booking/internal/pkg/notification"
	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/message/stub"
)

type recordingSender struct {
	mutex sync.Mutex
	sent  []notification.BookingNotification
}

func (s *recordingSender) Send(_ context.Context, n notification.BookingNotification) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) notifications() []notification.BookingNotification {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]notification.BookingNotification(nil), s.sent...)
}

func TestDeserializer(t *testing.T) {
	t.Parallel()
	messageID := uuid.New()

	tests := []struct {
		name     string
		payload  string
		expected notification.BookingNotification
		wantErr  bool
	}{
		{
			name:    "without notification id",
			payload: `{"user_id":42,"event_id":3,"date":"2024-10-01"}`,
			expected: notification.BookingNotification{
				NotificationID: messageID,
				UserID:         42,
				EventID:        3,
				Date:           "2024-10-01",
			},
		},
		{name: "missing event id", payload: `{"user_id":42,"date":"2024-10-01"}`, wantErr: true},
		{name: "non positive user id", payload: `{"user_id":0,"event_id":3,"date":"2024-10-01"}`, wantErr: true},
		{name: "date with time", payload: `{"user_id":42,"event_id":3,"date":"2024-10-01T10:00:00Z"}`, wantErr: true},
		{name: "impossible date", payload: `{"user_id":42,"event_id":3,"date":"2024-13-45"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			deserializer, err := notification.NewDeserializer()
			require.NoError(t, err)

			result, err := deserializer.Deserialize(&message.Message{
				ID:      messageID,
				Topic:   notification.Topic,
				Payload: []byte(tt.payload),
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, message.ErrDeserializeNotValidMessage)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConsumer_ReceivesPublishedNotification(t *testing.T) {
	t.Parallel()
	broker := stub.NewBroker()
	sender := &recordingSender{}

	bookedAt := time.Date(2024, time.October, 1, 15, 30, 0, 0, time.UTC)
	err := notification.NewPublisher(broker).PublishBooked(context.Background(), 42, 3, bookedAt)
	require.NoError(t, err)

	job, err := notification.NewConsumer(
		context.Background(),
		broker,
		"notification",
		sender,
		message.WithHandlerRetry(func() backoff.BackOff { return &backoff.StopBackOff{} }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- job(ctx)
	}()

	assert.Eventually(t, func() bool {
		return len(sender.notifications()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	sent := sender.notifications()[0]
	assert.Equal(t, int64(42), sent.UserID)
	assert.Equal(t, int64(3), sent.EventID)
	assert.Equal(t, "2024-10-01", sent.Date)
	assert.Equal(t, broker.Produced(notification.Topic)[0].ID, sent.NotificationID)

	cancel()
	select {
	case err = <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.NoError(t, errors.New("consumer did not stop"))
	}
}

func TestLogSender_Send(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	sender := notification.NewLogSender(log.New(log.LevelInfo, log.WithOutput(buf)))

	err := sender.Send(context.Background(), notification.BookingNotification{
		NotificationID: uuid.New(),
		UserID:         42,
		EventID:        3,
		Date:           "2024-10-01",
	})
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "user booked event", record["msg"])
	assert.InDelta(t, 42, record["userID"], 0)
	assert.InDelta(t, 3, record["eventID"], 0)
	assert.Equal(t, "2024-10-01", record["date"])
}
