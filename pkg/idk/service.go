//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Service=Service,Storage=Storage"
package idk

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultKeyTTL = 24 * time.Hour

var ErrAlreadyInserted = errors.New("idempotency key already inserted")

type (
	// Service records processed keys, inserting a key twice returns ErrAlreadyInserted.
	// Inserts are meant to run in the same transaction as the guarded change.
	Service interface {
		Insert(ctx context.Context, key uuid.UUID, extraKeys ...string) error
	}

	Cleaner interface {
		DeleteOutdated(context.Context) error
	}

	Storage interface {
		Insert(ctx context.Context, key uuid.UUID, extraKey string) error
		Delete(ctx context.Context, createdAtBefore time.Time) error
	}

	ServiceImpl struct {
		storage Storage
		ttl     time.Duration
	}
)

func NewService(storage Storage, ttl time.Duration) ServiceImpl {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}

	return ServiceImpl{storage: storage, ttl: ttl}
}

func (s ServiceImpl) Insert(ctx context.Context, key uuid.UUID, extraKeys ...string) error {
	return s.storage.Insert(ctx, key, strings.Join(extraKeys, "_"))
}

func (s ServiceImpl) DeleteOutdated(ctx context.Context) error {
	return s.storage.Delete(ctx, time.Now().Add(-s.ttl))
}
