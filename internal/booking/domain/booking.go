//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "BookingRepository=BookingRepository"
package domain

import (
	"context"
	"time"
)

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
)

type (
	Status string

	Booking struct {
		ID            int64
		UserID        int64
		EventID       int64
		TicketsBooked int
		Status        Status
		BookedAt      time.Time
	}

	BookingRepository interface {
		Add(context.Context, *Booking) (int64, error)
		FindByUser(ctx context.Context, userID int64) ([]Booking, error)
		DeleteByUser(ctx context.Context, userID int64) error
	}
)
