package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/internal/user/domain"
	"github.com/klwxsrx/event-booking/pkg/persistence"
)

var (
	ErrInvalidUserData   = errors.New("invalid user data")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with specified login already exists")
)

const updateUsersLockName = "update_users"

type (
	User interface {
		GetByID(context.Context, int64) (*UserData, error)
		Create(context.Context, NewUserData) (int64, error)
		// Delete removes the user and announces the deletion to the services owning user records.
		Delete(context.Context, int64) error
	}

	NewUserData struct {
		Login string
		Email string
	}

	UserData struct {
		ID        int64
		Login     string
		Email     string
		CreatedAt time.Time
	}

	userService struct {
		userRepo    domain.UserRepository
		deletions   userdeletion.Publisher
		transaction persistence.Transaction
	}
)

func NewUser(
	userRepo domain.UserRepository,
	deletions userdeletion.Publisher,
	transaction persistence.Transaction,
) User {
	return &userService{
		userRepo:    userRepo,
		deletions:   deletions,
		transaction: transaction,
	}
}

func (s *userService) GetByID(ctx context.Context, userID int64) (*UserData, error) {
	user, err := s.userRepo.FindOne(ctx, domain.FindUserSpecification{IDs: []int64{userID}})
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}

	return toUserData(user), nil
}

func (s *userService) Create(ctx context.Context, data NewUserData) (int64, error) {
	login := strings.ToLower(strings.TrimSpace(data.Login))
	if login == "" {
		return 0, fmt.Errorf("%w: login must be not empty", ErrInvalidUserData)
	}

	email, err := mail.ParseAddress(strings.TrimSpace(data.Email))
	if err != nil {
		return 0, fmt.Errorf("%w: email: %w", ErrInvalidUserData, err)
	}

	var userID int64
	err = s.transaction.WithinContext(ctx, func(ctx context.Context) error {
		_, err := s.userRepo.FindOne(ctx, domain.FindUserSpecification{Logins: []string{login}})
		if err == nil {
			return ErrUserAlreadyExists
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("find user by login: %w", err)
		}

		userID, err = s.userRepo.Add(ctx, &domain.User{
			Login:     login,
			Email:     email.Address,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("add user: %w", err)
		}

		return nil
	}, updateUsersLockName)

	return userID, err
}

// Delete publishes the deletion within the delete transaction, a failed publish keeps the user.
func (s *userService) Delete(ctx context.Context, userID int64) error {
	return s.transaction.WithinContext(ctx, func(ctx context.Context) error {
		err := s.userRepo.Delete(ctx, userID)
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		return s.deletions.PublishDeletion(ctx, userID)
	})
}

func toUserData(user *domain.User) *UserData {
	return &UserData{
		ID:        user.ID,
		Login:     user.Login,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
