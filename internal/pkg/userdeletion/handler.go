package userdeletion

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/idk"
	"github.com/klwxsrx/event-booking/pkg/persistence"
)

type (
	HandlerOption func(*Handler)

	// Handler applies deletion events to the store of a single service.
	Handler struct {
		store           DependentRecordStore
		transaction     persistence.Transaction
		idempotencyKeys idk.Service
		consumerName    string
	}
)

func NewHandler(store DependentRecordStore, opts ...HandlerOption) *Handler {
	h := &Handler{store: store}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// WithIdempotencyKeys makes a repeated event id fail with idk.ErrAlreadyInserted.
// The key is inserted in the same transaction as the delete, so a failed delete does not mark the event handled.
func WithIdempotencyKeys(consumerName string, keys idk.Service, transaction persistence.Transaction) HandlerOption {
	return func(h *Handler) {
		h.consumerName = consumerName
		h.idempotencyKeys = keys
		h.transaction = transaction
	}
}

func (h *Handler) Handle(ctx context.Context, event DeletionEvent) error {
	if event.UserID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, event.UserID)
	}

	if h.idempotencyKeys == nil || event.EventID == uuid.Nil {
		return h.delete(ctx, event.UserID)
	}

	return h.transaction.WithinContext(ctx, func(ctx context.Context) error {
		err := h.idempotencyKeys.Insert(ctx, event.EventID, h.consumerName)
		if err != nil {
			return err
		}

		return h.delete(ctx, event.UserID)
	})
}

func (h *Handler) delete(ctx context.Context, userID int64) error {
	err := h.store.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete records of user %d: %w", userID, err)
	}

	return nil
}
