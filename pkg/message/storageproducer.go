package message

import (
	"context"
	"fmt"
	"time"
)

type storageProducer struct {
	storage Storage
}

// NewStorageProducer returns the producer writing messages into the outbox storage.
// Called within a transaction, the message becomes visible to the outbox only when the transaction commits.
func NewStorageProducer(storage Storage) Producer {
	return storageProducer{storage: storage}
}

func (p storageProducer) Produce(ctx context.Context, msg *Message) error {
	err := p.storage.Store(ctx, time.Now(), *msg)
	if err != nil {
		return fmt.Errorf("store message %v to outbox: %w", msg.ID, err)
	}

	return nil
}
