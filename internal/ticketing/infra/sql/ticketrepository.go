package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/klwxsrx/event-booking/internal/ticketing/domain"
	"github.com/klwxsrx/event-booking/pkg/persistence"
	pkgsql "github.com/klwxsrx/event-booking/pkg/sql"
)

const (
	ticketTable             = "ticket"
	ticketNotificationTable = "ticket_notification"
)

type TicketRepository struct {
	db          pkgsql.Client
	transaction persistence.Transaction
}

func NewTicketRepository(db pkgsql.Client, transaction persistence.Transaction) *TicketRepository {
	return &TicketRepository{
		db:          db,
		transaction: transaction,
	}
}

func (r *TicketRepository) Add(ctx context.Context, ticket *domain.Ticket) (int64, error) {
	query, args, err := sq.
		Insert(ticketTable).
		Columns("title", "description", "priority", "status", "created_by", "assigned_to").
		Values(ticket.Title, ticket.Description, ticket.Priority, ticket.Status, ticket.CreatedBy, ticket.AssignedTo).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	err = r.db.GetContext(ctx, &id, query, args...)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *TicketRepository) FindOne(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	query, args, err := sq.
		Select("id", "title", "description", "priority", "status", "created_by", "assigned_to").
		From(ticketTable).
		Where(sq.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row sqlxTicket
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}

	result := &domain.Ticket{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    domain.Priority(row.Priority),
		Status:      domain.Status(row.Status),
		CreatedBy:   row.CreatedBy,
	}
	if row.AssignedTo.Valid {
		result.AssignedTo = &row.AssignedTo.Int64
	}

	return result, nil
}

func (r *TicketRepository) AddNotification(ctx context.Context, notification *domain.Notification) (int64, error) {
	query, args, err := sq.
		Insert(ticketNotificationTable).
		Columns("ticket_id", "user_id", "message", "is_read").
		Values(notification.TicketID, notification.UserID, notification.Message, notification.IsRead).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	err = r.db.GetContext(ctx, &id, query, args...)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *TicketRepository) FindNotifications(ctx context.Context, userID int64) ([]domain.Notification, error) {
	query, args, err := sq.
		Select("id", "ticket_id", "user_id", "message", "is_read").
		From(ticketNotificationTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []sqlxNotification
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.Notification(row))
	}

	return result, nil
}

// DeleteByUser also unassigns the user from tickets created by other users.
func (r *TicketRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return r.transaction.WithinContext(ctx, func(ctx context.Context) error {
		err := r.exec(ctx, sq.
			Delete(ticketNotificationTable).
			Where(sq.Or{
				sq.Eq{"user_id": userID},
				sq.Expr("ticket_id in (select id from "+ticketTable+" where created_by = ?)", userID),
			}),
		)
		if err != nil {
			return fmt.Errorf("delete ticket notifications: %w", err)
		}

		err = r.exec(ctx, sq.
			Update(ticketTable).
			Set("assigned_to", nil).
			Where(sq.Eq{"assigned_to": userID}),
		)
		if err != nil {
			return fmt.Errorf("unassign tickets: %w", err)
		}

		err = r.exec(ctx, sq.
			Delete(ticketTable).
			Where(sq.Eq{"created_by": userID}),
		)
		if err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}

		return nil
	})
}

func (r *TicketRepository) exec(ctx context.Context, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

type (
	sqlxTicket struct {
		ID          int64         `db:"id"`
		Title       string        `db:"title"`
		Description string        `db:"description"`
		Priority    string        `db:"priority"`
		Status      string        `db:"status"`
		CreatedBy   int64         `db:"created_by"`
		AssignedTo  sql.NullInt64 `db:"assigned_to"`
	}

	sqlxNotification struct {
		ID       int64  `db:"id"`
		TicketID int64  `db:"ticket_id"`
		UserID   int64  `db:"user_id"`
		Message  string `db:"message"`
		IsRead   bool   `db:"is_read"`
	}
)
