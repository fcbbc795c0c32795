package userdeletion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion/mock"
	"github.com/klwxsrx/event-booking/pkg/idk"
	idkmock "github.com/klwxsrx/event-booking/pkg/idk/mock"
	"github.com/klwxsrx/event-booking/pkg/persistence/stub"
)

const testConsumerName = "booking-user-deletion"

func TestHandler_Handle(t *testing.T) {
	t.Parallel()
	errStoreUnavailable := errors.New("store unavailable")
	eventID := uuid.New()

	tests := []struct {
		name        string
		event       userdeletion.DeletionEvent
		withKeys    bool
		prepare     func(store *mock.DependentRecordStore, keys *idkmock.Service)
		expectedErr error
	}{
		{
			name:  "deletes without idempotency keys",
			event: userdeletion.DeletionEvent{EventID: eventID, UserID: 42},
			prepare: func(store *mock.DependentRecordStore, _ *idkmock.Service) {
				store.EXPECT().DeleteByUser(gomock.Any(), int64(42)).Return(nil)
			},
		},
		{
			name:     "inserts idempotency key before delete",
			event:    userdeletion.DeletionEvent{EventID: eventID, UserID: 42},
			withKeys: true,
			prepare: func(store *mock.DependentRecordStore, keys *idkmock.Service) {
				gomock.InOrder(
					keys.EXPECT().Insert(gomock.Any(), eventID, testConsumerName).Return(nil),
					store.EXPECT().DeleteByUser(gomock.Any(), int64(42)).Return(nil),
				)
			},
		},
		{
			name:     "skips delete of already handled event",
			event:    userdeletion.DeletionEvent{EventID: eventID, UserID: 42},
			withKeys: true,
			prepare: func(_ *mock.DependentRecordStore, keys *idkmock.Service) {
				keys.EXPECT().Insert(gomock.Any(), eventID, testConsumerName).Return(idk.ErrAlreadyInserted)
			},
			expectedErr: idk.ErrAlreadyInserted,
		},
		{
			name:     "event without id is deleted directly",
			event:    userdeletion.DeletionEvent{UserID: 7},
			withKeys: true,
			prepare: func(store *mock.DependentRecordStore, _ *idkmock.Service) {
				store.EXPECT().DeleteByUser(gomock.Any(), int64(7)).Return(nil)
			},
		},
		{
			name:  "store error is returned",
			event: userdeletion.DeletionEvent{EventID: eventID, UserID: 42},
			prepare: func(store *mock.DependentRecordStore, _ *idkmock.Service) {
				store.EXPECT().DeleteByUser(gomock.Any(), int64(42)).Return(errStoreUnavailable)
			},
			expectedErr: errStoreUnavailable,
		},
		{
			name:        "non positive user id is rejected",
			event:       userdeletion.DeletionEvent{EventID: eventID, UserID: 0},
			prepare:     func(*mock.DependentRecordStore, *idkmock.Service) {},
			expectedErr: userdeletion.ErrInvalidUserID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			store := mock.NewDependentRecordStore(ctrl)
			keys := idkmock.NewService(ctrl)
			tt.prepare(store, keys)

			var opts []userdeletion.HandlerOption
			if tt.withKeys {
				opts = append(opts, userdeletion.WithIdempotencyKeys(testConsumerName, keys, stub.NewTransaction()))
			}
			handler := userdeletion.NewHandler(store, opts...)

			err := handler.Handle(context.Background(), tt.event)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
