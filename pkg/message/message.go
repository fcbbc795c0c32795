package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type (
	Topic string

	Message struct {
		ID    uuid.UUID
		Topic Topic
		// Key is used for topic partitioning, messages with the same key will fall in the same topic partition
		Key     string
		Payload []byte
	}

	StructuredMessage interface {
		ID() uuid.UUID
		// Type must be unique string for message class
		Type() string
	}

	TypedHandler[T StructuredMessage] func(context.Context, T) error

	// Handlers maps StructuredMessage.Type to its handlers.
	Handlers map[string][]TypedHandler[StructuredMessage]
)

// Handle adapts a typed handler to a StructuredMessage handler registered for the message type of T.
func Handle[T StructuredMessage](handler TypedHandler[T]) (string, TypedHandler[StructuredMessage]) {
	var blank T
	return blank.Type(), func(ctx context.Context, msg StructuredMessage) error {
		typed, ok := msg.(T)
		if !ok {
			return fmt.Errorf("%w: got %T, expected %T", ErrDeserializeUnknownMessage, msg, blank)
		}

		return handler(ctx, typed)
	}
}

// Register adds handler to the set.
func (h Handlers) Register(msgType string, handler TypedHandler[StructuredMessage]) Handlers {
	h[msgType] = append(h[msgType], handler)
	return h
}
