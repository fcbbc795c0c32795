package userdeletion

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

const (
	Topic message.Topic = "delete_user"

	CurrentSchemaVersion = 1

	eventType = "user_deleted"
)

//go:embed schema/deletion_event.json
var deletionEventSchema []byte

// DeletionEvent tells the services owning user data that the user was deleted.
// Bodies without event_id and schema_version are accepted as version 1.
type DeletionEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	SchemaVersion int       `json:"schema_version"`
	UserID        int64     `json:"user_id"`
}

func (e DeletionEvent) ID() uuid.UUID {
	return e.EventID
}

func (e DeletionEvent) Type() string {
	return eventType
}

// NewDeserializer validates deletion events and fills the fields missing in older bodies.
// The event id of such a body falls back to the broker message id.
func NewDeserializer() (message.Deserializer, error) {
	deserializer, err := message.NewJSONSchemaDeserializer[DeletionEvent](
		deletionEventSchema,
		func(event *DeletionEvent, msg *message.Message) error {
			if event.SchemaVersion == 0 {
				event.SchemaVersion = CurrentSchemaVersion
			}
			if event.EventID == uuid.Nil {
				event.EventID = msg.ID
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create deletion event deserializer: %w", err)
	}

	return deserializer, nil
}
