//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "UserRepository=UserRepository"
package domain

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type (
	User struct {
		ID        int64
		Login     string
		Email     string
		CreatedAt time.Time
	}

	UserRepository interface {
		// Add stores a new user and returns its id.
		Add(context.Context, *User) (int64, error)
		FindOne(context.Context, FindUserSpecification) (*User, error)
		// Delete returns ErrUserNotFound for a missing user.
		Delete(ctx context.Context, userID int64) error
	}

	FindUserSpecification struct {
		IDs    []int64
		Logins []string
	}
)
