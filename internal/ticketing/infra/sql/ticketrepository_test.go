package sql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrations "github.com/klwxsrx/event-booking/data/sql/ticketing"
	"github.com/klwxsrx/event-booking/internal/pkg/sqltest"
	"github.com/klwxsrx/event-booking/internal/ticketing/domain"
	"github.com/klwxsrx/event-booking/internal/ticketing/infra/sql"
	pkgsql "github.com/klwxsrx/event-booking/pkg/sql"
)

func newRepository(t *testing.T) *sql.TicketRepository {
	t.Helper()
	db := sqltest.Open(t, migrations.Migrations)
	return sql.NewTicketRepository(db, pkgsql.NewTransaction(db))
}

func addTicket(t *testing.T, repo *sql.TicketRepository, createdBy int64, assignedTo *int64) int64 {
	t.Helper()

	id, err := repo.Add(context.Background(), &domain.Ticket{
		Title:      "stage lights",
		Priority:   domain.PriorityHigh,
		Status:     domain.StatusOpen,
		CreatedBy:  createdBy,
		AssignedTo: assignedTo,
	})
	require.NoError(t, err)
	return id
}

func addNotification(t *testing.T, repo *sql.TicketRepository, ticketID, userID int64) {
	t.Helper()

	_, err := repo.AddNotification(context.Background(), &domain.Notification{
		TicketID: ticketID,
		UserID:   userID,
		Message:  "ticket updated",
	})
	require.NoError(t, err)
}

func ptr(v int64) *int64 {
	return &v
}

func TestTicketRepository_FindOne(t *testing.T) {
	t.Parallel()
	repo := newRepository(t)

	ticketID := addTicket(t, repo, 42, ptr(7))

	ticket, err := repo.FindOne(context.Background(), ticketID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ticket.CreatedBy)
	assert.Equal(t, domain.PriorityHigh, ticket.Priority)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, int64(7), *ticket.AssignedTo)

	_, err = repo.FindOne(context.Background(), ticketID+1)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestTicketRepository_DeleteByUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepository(t)

	ownTicket := addTicket(t, repo, 42, ptr(7))
	assignedTicket := addTicket(t, repo, 7, ptr(42))
	otherTicket := addTicket(t, repo, 7, nil)
	addNotification(t, repo, ownTicket, 7)
	addNotification(t, repo, assignedTicket, 42)
	addNotification(t, repo, otherTicket, 7)

	require.NoError(t, repo.DeleteByUser(ctx, 42))

	_, err := repo.FindOne(ctx, ownTicket)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)

	ticket, err := repo.FindOne(ctx, assignedTicket)
	require.NoError(t, err)
	assert.Nil(t, ticket.AssignedTo)
	assert.Equal(t, int64(7), ticket.CreatedBy)

	notifications, err := repo.FindNotifications(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, notifications)

	notifications, err = repo.FindNotifications(ctx, 7)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, otherTicket, notifications[0].TicketID)
	assert.False(t, notifications[0].IsRead)
}

func TestTicketRepository_DeleteByUser_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepository(t)

	addTicket(t, repo, 42, nil)

	require.NoError(t, repo.DeleteByUser(ctx, 42))
	require.NoError(t, repo.DeleteByUser(ctx, 42))
	require.NoError(t, repo.DeleteByUser(ctx, 1000))
}
