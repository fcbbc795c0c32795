package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/internal/user/app/service"
	"github.com/klwxsrx/event-booking/internal/user/domain"
	"github.com/klwxsrx/event-booking/internal/user/domain/mock"
	"github.com/klwxsrx/event-booking/pkg/message"
	"github.com/klwxsrx/event-booking/pkg/message/stub"
	persistencestub "github.com/klwxsrx/event-booking/pkg/persistence/stub"
)

type fixture struct {
	repo    *mock.UserRepository
	broker  *stub.Broker
	service service.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	repo := mock.NewUserRepository(gomock.NewController(t))
	broker := stub.NewBroker()
	return fixture{
		repo:    repo,
		broker:  broker,
		service: service.NewUser(repo, userdeletion.NewPublisher(broker), persistencestub.NewTransaction()),
	}
}

func TestUserService_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.repo.EXPECT().
		FindOne(gomock.Any(), domain.FindUserSpecification{Logins: []string{"alice"}}).
		Return(nil, domain.ErrUserNotFound)
	f.repo.EXPECT().
		Add(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, user *domain.User) (int64, error) {
			assert.Equal(t, "alice", user.Login)
			assert.Equal(t, "alice@example.com", user.Email)
			assert.False(t, user.CreatedAt.IsZero())
			return 42, nil
		})

	userID, err := f.service.Create(context.Background(), service.NewUserData{Login: " Alice ", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestUserService_Create_Rejected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		data        service.NewUserData
		prepare     func(*mock.UserRepository)
		expectedErr error
	}{
		{
			name:        "empty login",
			data:        service.NewUserData{Login: " ", Email: "alice@example.com"},
			prepare:     func(*mock.UserRepository) {},
			expectedErr: service.ErrInvalidUserData,
		},
		{
			name:        "invalid email",
			data:        service.NewUserData{Login: "alice", Email: "alice"},
			prepare:     func(*mock.UserRepository) {},
			expectedErr: service.ErrInvalidUserData,
		},
		{
			name: "login taken",
			data: service.NewUserData{Login: "alice", Email: "alice@example.com"},
			prepare: func(repo *mock.UserRepository) {
				repo.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(&domain.User{ID: 1, Login: "alice"}, nil)
			},
			expectedErr: service.ErrUserAlreadyExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.prepare(f.repo)

			_, err := f.service.Create(context.Background(), tt.data)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestUserService_GetByID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.repo.EXPECT().
		FindOne(gomock.Any(), domain.FindUserSpecification{IDs: []int64{42}}).
		Return(&domain.User{ID: 42, Login: "alice", Email: "alice@example.com"}, nil)
	f.repo.EXPECT().
		FindOne(gomock.Any(), domain.FindUserSpecification{IDs: []int64{7}}).
		Return(nil, domain.ErrUserNotFound)

	user, err := f.service.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)

	_, err = f.service.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_Delete_PublishesDeletion(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.repo.EXPECT().Delete(gomock.Any(), int64(42)).Return(nil)

	require.NoError(t, f.service.Delete(context.Background(), 42))

	produced := f.broker.Produced(userdeletion.Topic)
	require.Len(t, produced, 1)
	assert.Equal(t, "42", produced[0].Key)
}

func TestUserService_Delete_MissingUserIsNotPublished(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.repo.EXPECT().Delete(gomock.Any(), int64(42)).Return(domain.ErrUserNotFound)

	err := f.service.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
	assert.Empty(t, f.broker.Produced(userdeletion.Topic))
}

func TestUserService_Delete_FailedPublishIsReturned(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.broker.FailProduce(func(*message.Message) error {
		return message.ErrBrokerUnavailable
	})

	f.repo.EXPECT().Delete(gomock.Any(), int64(42)).Return(nil)

	err := f.service.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, message.ErrBrokerUnavailable)
}

func TestUserService_Delete_RepositoryError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	errDB := errors.New("db is down")

	f.repo.EXPECT().Delete(gomock.Any(), int64(42)).Return(errDB)

	err := f.service.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, errDB)
	assert.Empty(t, f.broker.Produced(userdeletion.Topic))
}
