package domain

import (
	"context"
	"errors"
)

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"

	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

var ErrTicketNotFound = errors.New("ticket not found")

type (
	Priority string
	Status   string

	Ticket struct {
		ID          int64
		Title       string
		Description string
		Priority    Priority
		Status      Status
		CreatedBy   int64
		// AssignedTo is cleared when the assignee is deleted, the ticket itself stays.
		AssignedTo *int64
	}

	Notification struct {
		ID       int64
		TicketID int64
		UserID   int64
		Message  string
		IsRead   bool
	}

	TicketRepository interface {
		Add(context.Context, *Ticket) (int64, error)
		FindOne(ctx context.Context, ticketID int64) (*Ticket, error)
		AddNotification(context.Context, *Notification) (int64, error)
		FindNotifications(ctx context.Context, userID int64) ([]Notification, error)
		// DeleteByUser removes tickets created by the user with their notifications
		// and the notifications addressed to the user.
		DeleteByUser(ctx context.Context, userID int64) error
	}
)
