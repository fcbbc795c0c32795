package message

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/idk"
	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/metric"
	"github.com/klwxsrx/event-booking/pkg/worker"
)

const (
	defaultMaxProcessedMessages = 1
	defaultHandlerTimeout       = 30 * time.Second
	defaultHandlerRetries       = 3
)

var errConsumerClosed = errors.New("consumer closed messages channel")

type (
	ListenerImpl struct {
		// MaxProcessedMessages is the max number of simultaneously processed messages
		MaxProcessedMessages int
		// HandlerTimeout limits a single handler attempt
		HandlerTimeout        time.Duration
		HandlerRetry          func() backoff.BackOff
		Middlewares           []HandlerMiddleware
		Workers               worker.Pool
		OnDeserializeError    []func(context.Context, *Message, error)
		OnHandlerNotFound     []func(context.Context, *Message, StructuredMessage)
		OnBeforeHandleMessage []func(context.Context, *Message) context.Context
		OnHandlerResult       []func(context.Context, *Message, error)
		OnAcknowledgeResult   []func(_ context.Context, _ *Message, handlerResult error, ackErr error)

		consumer     Consumer
		handlers     Handlers
		deserializer Deserializer
		queue        ListenerProcessingQueue
		queueRetry   func() backoff.BackOff
	}

	ListenerOption    func(*ListenerImpl)
	HandlerMiddleware func(TypedHandler[StructuredMessage]) TypedHandler[StructuredMessage]
)

// NewListener returns the job consuming messages until ctx is done. Every consumed message is acked only after
// all its handlers succeed, failed messages are nacked for redelivery, malformed and unknown ones are acked and dropped.
// On ctx cancellation the listener stops taking new messages, waits for the in-flight ones and closes the consumer.
func NewListener(
	consumer Consumer,
	handlers Handlers,
	deserializer Deserializer,
	opts ...ListenerOption,
) worker.ErrorJob {
	impl := &ListenerImpl{
		MaxProcessedMessages: defaultMaxProcessedMessages,
		HandlerTimeout:       defaultHandlerTimeout,
		HandlerRetry: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(100*time.Millisecond),
				backoff.WithMultiplier(2),
				backoff.WithMaxInterval(5*time.Second),
				backoff.WithMaxElapsedTime(0),
			), defaultHandlerRetries)
		},
		Middlewares:           nil,
		Workers:               worker.NewPool(worker.MaxWorkersCountUnlimited),
		OnDeserializeError:    nil,
		OnHandlerNotFound:     nil,
		OnBeforeHandleMessage: nil,
		OnHandlerResult:       nil,
		OnAcknowledgeResult:   nil,

		consumer:     consumer,
		handlers:     make(Handlers, len(handlers)),
		deserializer: deserializer,
		queueRetry: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(100*time.Millisecond),
				backoff.WithMultiplier(2),
				backoff.WithMaxInterval(5*time.Second),
				backoff.WithMaxElapsedTime(30*time.Second),
			)
		},
	}
	for _, opt := range opts {
		opt(impl)
	}

	for msgType, typeHandlers := range handlers {
		wrapped := make([]TypedHandler[StructuredMessage], 0, len(typeHandlers))
		for _, handler := range typeHandlers {
			handler = impl.wrapWithPanicHandler(handler)
			for j := len(impl.Middlewares) - 1; j >= 0; j-- {
				handler = impl.Middlewares[j](handler)
			}
			wrapped = append(wrapped, handler)
		}
		impl.handlers[msgType] = wrapped
	}

	impl.queue = NewAckNackQueue(consumer, impl.MaxProcessedMessages)
	return impl.consumerWorker
}

func (l *ListenerImpl) wrapWithPanicHandler(handler TypedHandler[StructuredMessage]) TypedHandler[StructuredMessage] {
	return func(ctx context.Context, msg StructuredMessage) (err error) {
		defer func() {
			panicMsg := recover()
			if panicMsg == nil {
				return
			}

			GetHandlerMetadata(ctx).Panic = &PanicErr{
				Message:    fmt.Sprintf("%v", panicMsg),
				Stacktrace: debug.Stack(),
			}
			err = fmt.Errorf("message handled with panic: %v", panicMsg)
		}()

		return handler(ctx, msg)
	}
}

func (l *ListenerImpl) consumerWorker(ctx context.Context) error {
	inFlight := &sync.WaitGroup{}
	err := l.consume(ctx, inFlight)

	inFlight.Wait()
	closeErr := l.consumer.Close()

	err = errors.Join(err, closeErr)
	if err != nil {
		return fmt.Errorf("message listener %s/%s: %w", l.consumer.Subscriber(), l.consumer.Topic(), err)
	}

	return nil
}

func (l *ListenerImpl) consume(ctx context.Context, inFlight *sync.WaitGroup) error {
	for {
		select {
		case <-l.queue.ProcessingTokens():
		case <-ctx.Done():
			return nil
		}

		select {
		case msg, ok := <-l.consumer.Messages():
			if !ok {
				return errConsumerClosed
			}
			if err := l.queue.AddProcessing(msg); err != nil {
				return fmt.Errorf("add to processing internal error: %w", err)
			}

			inFlight.Add(1)
			go func() {
				defer inFlight.Done()
				l.processMessage(ctx, msg)
			}()
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *ListenerImpl) processMessage(ctx context.Context, msg *ConsumerMessage) {
	msgCtx := msg.Context
	if msgCtx == nil {
		msgCtx = context.Background()
	}

	msgImpl, err := l.deserializer.Deserialize(&msg.Message)
	if err != nil {
		for _, fn := range l.OnDeserializeError {
			fn(msgCtx, &msg.Message, err)
		}
		l.acknowledgeMessage(msgCtx, msg, nil)
		return
	}

	handlers, ok := l.handlers[msgImpl.Type()]
	if !ok || len(handlers) == 0 {
		for _, fn := range l.OnHandlerNotFound {
			fn(msgCtx, &msg.Message, msgImpl)
		}
		l.acknowledgeMessage(msgCtx, msg, nil)
		return
	}

	msgCtx = withHandlerMetadata(msgCtx, &msg.Message, l.consumer.Subscriber())
	for _, fn := range l.OnBeforeHandleMessage {
		msgCtx = fn(msgCtx, &msg.Message)
	}

	handlersGroup := worker.WithinFailSafeGroup(msgCtx, l.Workers)
	for _, handler := range handlers {
		handlersGroup.Do(func(msgCtx context.Context) error {
			return backoff.Retry(
				func() error {
					attemptCtx, cancel := context.WithTimeout(msgCtx, l.HandlerTimeout)
					defer cancel()

					return handler(attemptCtx, msgImpl)
				},
				backoff.WithContext(l.HandlerRetry(), ctx),
			)
		})
	}

	handlerErr := handlersGroup.Wait()
	for _, fn := range l.OnHandlerResult {
		fn(msgCtx, &msg.Message, handlerErr)
	}

	l.acknowledgeMessage(msgCtx, msg, handlerErr)
}

// acknowledgeMessage does not depend on the listener context so in-flight messages are settled during shutdown.
func (l *ListenerImpl) acknowledgeMessage(msgCtx context.Context, msg *ConsumerMessage, handlerErr error) {
	ackCtx := context.WithoutCancel(msgCtx)
	err := backoff.Retry(
		func() error {
			err := l.queue.AcknowledgeResult(ackCtx, msg, handlerErr)
			for _, fn := range l.OnAcknowledgeResult {
				fn(ackCtx, &msg.Message, handlerErr, err)
			}

			return err
		},
		l.queueRetry(),
	)
	if err != nil {
		l.queue.Discard(msg)
	}
}

func WithHandlerTimeout(timeout time.Duration) ListenerOption {
	return func(l *ListenerImpl) {
		if timeout > 0 {
			l.HandlerTimeout = timeout
		}
	}
}

// WithHandlerRetry sets the retry policy of a failed handler before the message is nacked, retry is built per message.
func WithHandlerRetry(retry func() backoff.BackOff) ListenerOption {
	return func(l *ListenerImpl) {
		l.HandlerRetry = retry
	}
}

func WithHandlerConcurrency(maxProcessedMessages int) ListenerOption {
	return func(l *ListenerImpl) {
		if maxProcessedMessages > 0 {
			l.MaxProcessedMessages = maxProcessedMessages
		}
	}
}

func WithHandlerIdempotencyKeyErrorIgnoring() ListenerOption {
	return WithHandlerErrorMapping(func(err error) error {
		if errors.Is(err, idk.ErrAlreadyInserted) {
			return nil
		}

		return err
	})
}

func WithHandlerErrorMapping(fn func(error) error) ListenerOption {
	mw := func(handler TypedHandler[StructuredMessage]) TypedHandler[StructuredMessage] {
		return func(ctx context.Context, msg StructuredMessage) error {
			err := handler(ctx, msg)
			return fn(err)
		}
	}

	return func(l *ListenerImpl) {
		l.Middlewares = append(l.Middlewares, mw)
	}
}

func WithHandlerLogging(logger log.Logger, infoLevel, errorLevel log.Level) ListenerOption {
	mw := func(handler TypedHandler[StructuredMessage]) TypedHandler[StructuredMessage] {
		return func(ctx context.Context, msg StructuredMessage) error {
			meta := GetHandlerMetadata(ctx)
			ctx = logger.WithContext(ctx, log.Fields{
				"consumerMessage": log.Fields{
					"correlation": uuid.New(),
					"subscriber":  meta.Subscriber,
					"topic":       meta.MessageTopic,
					"messageID":   meta.MessageID,
					"messageType": msg.Type(),
				},
			})

			err := handler(ctx, msg)
			if meta.Panic != nil {
				logger.WithField("panic", log.Fields{
					"message": meta.Panic.Message,
					"stack":   string(meta.Panic.Stacktrace),
				}).Error(ctx, "message handled with panic")
				return err
			}
			if err != nil {
				logger.WithError(err).Log(ctx, errorLevel, "message handled with error")
				return err
			}

			logger.Log(ctx, infoLevel, "message handled")
			return nil
		}
	}

	return func(l *ListenerImpl) {
		l.Middlewares = append(l.Middlewares, mw)

		l.OnDeserializeError = append(l.OnDeserializeError, func(ctx context.Context, msg *Message, err error) {
			logger.
				With(log.Fields{
					"messageID": msg.ID,
					"topic":     msg.Topic,
				}).
				WithError(err).
				Log(ctx, errorLevel, "malformed message dropped")
		})

		l.OnHandlerNotFound = append(l.OnHandlerNotFound, func(ctx context.Context, msg *Message, impl StructuredMessage) {
			logger.With(log.Fields{
				"messageID":   msg.ID,
				"topic":       msg.Topic,
				"messageType": impl.Type(),
			}).Log(ctx, errorLevel, "message handler not found, message dropped")
		})

		l.OnBeforeHandleMessage = append(l.OnBeforeHandleMessage, func(ctx context.Context, _ *Message) context.Context {
			return logger.WithContext(ctx, log.Fields{"handlerCorrelation": uuid.New().String()})
		})

		l.OnAcknowledgeResult = append(l.OnAcknowledgeResult, func(ctx context.Context, msg *Message, handlerResult, err error) {
			if err == nil {
				return
			}

			var handlerResultStr *string
			if handlerResult != nil {
				v := handlerResult.Error()
				handlerResultStr = &v
			}

			logger.
				With(log.Fields{
					"messageID":    msg.ID,
					"topic":        msg.Topic,
					"handleResult": handlerResultStr,
				}).
				WithError(err).
				Log(ctx, errorLevel, "failed to acknowledge handled message")
		})
	}
}

func WithHandlerMetrics(metrics metric.Metrics) ListenerOption {
	mw := func(handler TypedHandler[StructuredMessage]) TypedHandler[StructuredMessage] {
		return func(ctx context.Context, msg StructuredMessage) error {
			started := time.Now()

			err := handler(ctx, msg)
			meta := GetHandlerMetadata(ctx)
			if meta.Panic != nil {
				metrics.With(metric.Labels{
					"topic": meta.MessageTopic,
					"type":  msg.Type(),
				}).Increment("msg_handle_panics_total")
			}

			metrics.With(metric.Labels{
				"topic":   meta.MessageTopic,
				"type":    msg.Type(),
				"success": err == nil,
			}).Duration("msg_handle_duration_seconds", time.Since(started))
			return err
		}
	}

	return func(l *ListenerImpl) {
		l.Middlewares = append(l.Middlewares, mw)

		l.OnDeserializeError = append(l.OnDeserializeError, func(_ context.Context, msg *Message, _ error) {
			metrics.WithLabel("topic", msg.Topic).Increment("msg_dropped_malformed_total")
		})

		l.OnAcknowledgeResult = append(l.OnAcknowledgeResult, func(_ context.Context, msg *Message, handlerResult, err error) {
			metrics.With(metric.Labels{
				"topic":   msg.Topic,
				"ack":     handlerResult == nil,
				"success": err == nil,
			}).Increment("msg_acknowledge_attempts_total")
		})
	}
}
