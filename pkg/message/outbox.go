package message

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/metric"
)

const (
	defaultOutboxBatchSize    = 100
	defaultOutboxPollInterval = time.Second
)

type (
	// Outbox relays messages stored within domain transactions to the broker.
	// A message is deleted from the storage only after the broker accepted it, so it may be sent more than once.
	Outbox interface {
		Worker(context.Context) error
		Process()
	}

	OutboxOption func(*OutboxImpl)

	OutboxImpl struct {
		BatchSize int
		// PollInterval is used to pick up messages stored by other processes
		PollInterval     time.Duration
		Retry            func() backoff.BackOff
		OnInternalError  []func(context.Context, error)
		OnFoundMessages  []func(context.Context, []Message, error)
		OnSentMessage    []func(context.Context, *Message, error)
		OnDeletedMessage []func(context.Context, *Message, error)

		storage     Storage
		producer    Producer
		processChan chan struct{}
	}
)

func NewOutbox(
	storage Storage,
	producer Producer,
	opts ...OutboxOption,
) *OutboxImpl {
	o := &OutboxImpl{
		BatchSize:    defaultOutboxBatchSize,
		PollInterval: defaultOutboxPollInterval,
		Retry: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(time.Second),
				backoff.WithMultiplier(2),
				backoff.WithMaxInterval(time.Minute),
				backoff.WithMaxElapsedTime(0),
			)
		},
		OnInternalError:  nil,
		OnFoundMessages:  nil,
		OnSentMessage:    nil,
		OnDeletedMessage: nil,

		storage:     storage,
		producer:    producer,
		processChan: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *OutboxImpl) Worker(ctx context.Context) error {
	ticker := time.NewTicker(o.PollInterval)
	defer ticker.Stop()

	o.Process()
	for {
		select {
		case <-o.processChan:
			o.process(ctx)
		case <-ticker.C:
			o.process(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Process schedules an immediate relay, it never blocks.
func (o *OutboxImpl) Process() {
	select {
	case o.processChan <- struct{}{}:
	default:
	}
}

func (o *OutboxImpl) process(ctx context.Context) {
	impl := func() error {
		var err error
		var allProcessed bool
		for !allProcessed {
			allProcessed, err = o.processBatch(ctx)
			if err != nil {
				return err
			}
		}

		return nil
	}

	_ = backoff.Retry(impl, backoff.WithContext(o.Retry(), ctx))
}

func (o *OutboxImpl) processBatch(ctx context.Context) (allProcessed bool, err error) {
	lockCtx, releaseLock, err := o.storage.Lock(ctx)
	if err != nil {
		err = fmt.Errorf("get storage lock: %w", err)
		for _, fn := range o.OnInternalError {
			fn(ctx, err)
		}
		return false, err
	}
	defer func() {
		releaseErr := releaseLock()
		if releaseErr != nil {
			for _, fn := range o.OnInternalError {
				fn(ctx, fmt.Errorf("release storage lock: %w", releaseErr))
			}
		}
	}()

	msgs, err := o.storage.Find(lockCtx, &StorageSpecification{
		ScheduledAtBefore: time.Now(),
		Limit:             o.BatchSize,
	})
	for _, fn := range o.OnFoundMessages {
		fn(ctx, msgs, err)
	}
	if err != nil {
		return false, fmt.Errorf("get messages to send: %w", err)
	}
	if len(msgs) == 0 {
		return true, nil
	}

	for _, msg := range msgs {
		err = o.producer.Produce(lockCtx, &msg)
		for _, fn := range o.OnSentMessage {
			fn(ctx, &msg, err)
		}
		if err != nil {
			return false, fmt.Errorf("send message: %w", err)
		}

		err = o.storage.Delete(lockCtx, msg.Topic, msg.ID)
		for _, fn := range o.OnDeletedMessage {
			fn(ctx, &msg, err)
		}
		if err != nil {
			return false, fmt.Errorf("delete sent message: %w", err)
		}
	}

	return len(msgs) < o.BatchSize, nil
}

func WithOutboxRetry(retry func() backoff.BackOff) OutboxOption {
	return func(o *OutboxImpl) {
		o.Retry = retry
	}
}

func WithOutboxPollInterval(interval time.Duration) OutboxOption {
	return func(o *OutboxImpl) {
		if interval > 0 {
			o.PollInterval = interval
		}
	}
}

func WithOutboxLogging(
	logger log.Logger,
	infoLevel log.Level,
	errorLevel log.Level,
) OutboxOption {
	return func(o *OutboxImpl) {
		o.OnInternalError = append(o.OnInternalError, func(ctx context.Context, err error) {
			logger.WithError(err).Log(ctx, errorLevel, "message outbox internal error")
		})

		o.OnFoundMessages = append(o.OnFoundMessages, func(ctx context.Context, _ []Message, err error) {
			if err != nil {
				logger.WithError(err).Log(ctx, errorLevel, "message outbox internal error")
			}
		})

		o.OnSentMessage = append(o.OnSentMessage, func(ctx context.Context, msg *Message, err error) {
			logger := logger.With(log.Fields{
				"messageID": msg.ID,
				"topic":     msg.Topic,
			})
			if err != nil {
				logger.WithError(err).Log(ctx, errorLevel, "outbox message sending failed")
			} else {
				logger.Log(ctx, infoLevel, "outbox message sent successfully")
			}
		})

		o.OnDeletedMessage = append(o.OnDeletedMessage, func(ctx context.Context, msg *Message, err error) {
			if err != nil {
				logger.
					WithField("messageID", msg.ID).
					WithError(fmt.Errorf("delete message from storage: %w", err)).
					Log(ctx, errorLevel, "message outbox internal error")
			}
		})
	}
}

func WithOutboxMetrics(metrics metric.Metrics) OutboxOption {
	return func(o *OutboxImpl) {
		o.OnInternalError = append(o.OnInternalError, func(context.Context, error) {
			metrics.Increment("msg_outbox_internal_error_total")
		})

		o.OnFoundMessages = append(o.OnFoundMessages, func(_ context.Context, msgs []Message, err error) {
			if err != nil {
				metrics.Increment("msg_outbox_internal_error_total")
				return
			}
			metrics.Gauge("msg_outbox_batch_size", len(msgs))
		})

		o.OnSentMessage = append(o.OnSentMessage, func(_ context.Context, msg *Message, err error) {
			metrics.With(metric.Labels{
				"success": err == nil,
				"topic":   msg.Topic,
			}).Increment("msg_outbox_producer_sending_attempts_total")
		})

		o.OnDeletedMessage = append(o.OnDeletedMessage, func(_ context.Context, msg *Message, err error) {
			metrics.With(metric.Labels{
				"success": err == nil,
				"topic":   msg.Topic,
			}).Increment("msg_outbox_producer_delete_from_storage_attempts_total")
		})
	}
}
