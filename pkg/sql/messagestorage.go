package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/klwxsrx/event-booking/pkg/message"
)

const (
	messageStorageTable    = "message_storage"
	messageStorageLockName = "message_storage"
)

var errMessageWithoutTopic = errors.New("message without topic")

// MessageStorage is the outbox table of a service database.
// Messages are stored in the transaction of the change that emits them and deleted once the broker accepts them.
type MessageStorage struct {
	db Database
}

func NewMessageStorage(db Database) *MessageStorage {
	return &MessageStorage{db: db}
}

// Lock takes a session level lock, relays of different extraKeys don't block each other.
func (s MessageStorage) Lock(ctx context.Context, extraKeys ...string) (context.Context, func() error, error) {
	name := strings.Join(append([]string{messageStorageLockName}, extraKeys...), "_")
	return withSessionLevelLock(ctx, name, s.db)
}

func (s MessageStorage) Find(ctx context.Context, spec *message.StorageSpecification) ([]message.Message, error) {
	qb := sq.
		Select("id", "topic", "key", "payload").
		From(messageStorageTable).
		Where(sq.LtOrEq{"scheduled_at": spec.ScheduledAtBefore}).
		OrderBy("scheduled_at", "id")
	if len(spec.IDsExcluded) > 0 {
		qb = qb.Where(sq.NotEq{"id": spec.IDsExcluded})
	}
	if len(spec.Topics) > 0 {
		qb = qb.Where(sq.Eq{"topic": spec.Topics})
	}
	if spec.Limit > 0 {
		qb = qb.Limit(uint64(spec.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []sqlxMessage
	err = s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find outbox messages: %w", err)
	}

	result := make([]message.Message, len(rows))
	for i, row := range rows {
		result[i] = row.message()
	}

	return result, nil
}

// Store keeps the first copy of a message id within a topic.
func (s MessageStorage) Store(ctx context.Context, scheduledAt time.Time, msgs ...message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	qb := sq.
		Insert(messageStorageTable).
		Columns("id", "topic", "key", "payload", "scheduled_at").
		Suffix("on conflict (id, topic) do nothing")
	for _, msg := range msgs {
		if msg.Topic == "" {
			return fmt.Errorf("%w: %v", errMessageWithoutTopic, msg.ID)
		}
		qb = qb.Values(msg.ID, string(msg.Topic), msg.Key, msg.Payload, scheduledAt)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store %d outbox messages: %w", len(msgs), err)
	}

	return nil
}

func (s MessageStorage) Delete(ctx context.Context, topic message.Topic, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sq.
		Delete(messageStorageTable).
		Where(sq.Eq{"topic": string(topic), "id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete outbox messages of %s: %w", topic, err)
	}

	return nil
}

func MessageStorageMigrations() ([]Migration, error) {
	return []Migration{
		{
			ID: "0000-00-00-002-message-storage",
			SQL: `
				create table if not exists message_storage (
					id           uuid        not null,
					topic        text        not null,
					key          text        not null,
					payload      bytea       not null,
					scheduled_at timestamptz not null,
					primary key (id, topic)
				);

				create index if not exists message_storage_scheduled_at on message_storage(scheduled_at);
			`,
		},
	}, nil
}

type sqlxMessage struct {
	ID      uuid.UUID `db:"id"`
	Topic   string    `db:"topic"`
	Key     string    `db:"key"`
	Payload []byte    `db:"payload"`
}

func (m sqlxMessage) message() message.Message {
	return message.Message{
		ID:      m.ID,
		Topic:   message.Topic(m.Topic),
		Key:     m.Key,
		Payload: m.Payload,
	}
}
