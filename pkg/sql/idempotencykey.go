package sql

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/idk"
)

type IdempotencyKeyStorage struct {
	db Client
}

func NewIdempotencyKeyStorage(db Client) IdempotencyKeyStorage {
	return IdempotencyKeyStorage{db: db}
}

func (s IdempotencyKeyStorage) Insert(ctx context.Context, key uuid.UUID, extraKey string) error {
	query, args, err := sq.
		Insert("idempotency_key").
		Columns("key", "extra_key").
		Values(key, extraKey).
		Suffix("on conflict do nothing").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert idempotency key %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return idk.ErrAlreadyInserted
	}

	return nil
}

func (s IdempotencyKeyStorage) Delete(ctx context.Context, createdAtBefore time.Time) error {
	query, args, err := sq.
		Delete("idempotency_key").
		Where(sq.Lt{"created_at": createdAtBefore}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete outdated idempotency keys: %w", err)
	}

	return nil
}

func IdempotencyKeyMigrations() ([]Migration, error) {
	return []Migration{
		{
			ID: "0000-00-00-001-idempotency-key",
			SQL: `
				create table if not exists idempotency_key (
					key        uuid        not null,
					extra_key  text        not null,
					created_at timestamptz not null default current_timestamp,
					primary key (key, extra_key)
				);

				create index if not exists idempotency_key_created_at on idempotency_key(created_at);
			`,
		},
	}, nil
}
