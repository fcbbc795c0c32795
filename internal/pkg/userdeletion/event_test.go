package userdeletion_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/pkg/message"
)

func TestDeserializer(t *testing.T) {
	t.Parallel()
	messageID := uuid.New()
	eventID := uuid.New()

	tests := []struct {
		name     string
		payload  string
		expected userdeletion.DeletionEvent
		wantErr  bool
	}{
		{
			name:    "current body",
			payload: `{"event_id":"` + eventID.String() + `","schema_version":1,"user_id":42}`,
			expected: userdeletion.DeletionEvent{
				EventID:       eventID,
				SchemaVersion: 1,
				UserID:        42,
			},
		},
		{
			name:    "legacy body falls back to message id",
			payload: `{"user_id":42}`,
			expected: userdeletion.DeletionEvent{
				EventID:       messageID,
				SchemaVersion: userdeletion.CurrentSchemaVersion,
				UserID:        42,
			},
		},
		{name: "missing user id", payload: `{}`, wantErr: true},
		{name: "string user id", payload: `{"user_id":"42"}`, wantErr: true},
		{name: "fractional user id", payload: `{"user_id":4.2}`, wantErr: true},
		{name: "zero user id", payload: `{"user_id":0}`, wantErr: true},
		{name: "negative user id", payload: `{"user_id":-5}`, wantErr: true},
		{name: "not json", payload: `user_id=42`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			deserializer, err := userdeletion.NewDeserializer()
			require.NoError(t, err)

			result, err := deserializer.Deserialize(&message.Message{
				ID:      messageID,
				Topic:   userdeletion.Topic,
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
