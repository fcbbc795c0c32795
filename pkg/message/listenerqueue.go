package message

import (
	"context"
	"fmt"
	"sync"
)

type (
	// ListenerProcessingQueue limits the number of simultaneously processed messages by issuing ProcessingTokens().
	// A token is returned after the processed message is acknowledged.
	ListenerProcessingQueue interface {
		ProcessingTokens() <-chan struct{}
		AddProcessing(*ConsumerMessage) error
		AcknowledgeResult(context.Context, *ConsumerMessage, error) error
		// Discard returns the processing token of a message that could not be acknowledged.
		Discard(*ConsumerMessage)
	}

	ackNackQueue struct {
		maxSize          int
		mutex            *sync.Mutex
		consumer         Consumer
		processingTokens chan struct{}
		processingQueue  map[*ConsumerMessage]struct{}
	}
)

func NewAckNackQueue(consumer Consumer, maxSize int) ListenerProcessingQueue {
	if maxSize < 1 {
		maxSize = 1
	}

	tokensCh := make(chan struct{}, maxSize)
	for range maxSize {
		tokensCh <- struct{}{}
	}

	return &ackNackQueue{
		maxSize:          maxSize,
		mutex:            &sync.Mutex{},
		consumer:         consumer,
		processingTokens: tokensCh,
		processingQueue:  make(map[*ConsumerMessage]struct{}, maxSize),
	}
}

func (q *ackNackQueue) ProcessingTokens() <-chan struct{} {
	return q.processingTokens
}

func (q *ackNackQueue) AddProcessing(msg *ConsumerMessage) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if len(q.processingQueue) == q.maxSize {
		return fmt.Errorf("processing queue is full")
	}
	if _, ok := q.processingQueue[msg]; ok {
		return fmt.Errorf("message %s already in queue", msg.Message.ID)
	}

	q.processingQueue[msg] = struct{}{}
	return nil
}

// AcknowledgeResult acks the message on nil result and nacks it otherwise.
func (q *ackNackQueue) AcknowledgeResult(ctx context.Context, msg *ConsumerMessage, result error) error {
	if result == nil {
		err := q.consumer.Ack(ctx, msg)
		if err != nil {
			return fmt.Errorf("ack: %w", err)
		}
	} else {
		err := q.consumer.Nack(ctx, msg)
		if err != nil {
			return fmt.Errorf("nack: %w", err)
		}
	}

	q.Discard(msg)
	return nil
}

func (q *ackNackQueue) Discard(msg *ConsumerMessage) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if _, ok := q.processingQueue[msg]; !ok {
		return
	}

	delete(q.processingQueue, msg)
	q.processingTokens <- struct{}{}
}
