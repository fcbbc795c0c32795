package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klwxsrx/event-booking/internal/booking/domain"
	"github.com/klwxsrx/event-booking/internal/pkg/notification"
	"github.com/klwxsrx/event-booking/pkg/persistence"
	pkgtime "github.com/klwxsrx/event-booking/pkg/time"
)

var ErrInvalidBookingData = errors.New("invalid booking data")

type (
	Booking interface {
		// Create stores the booking and notifies the user within one transaction.
		Create(context.Context, NewBookingData) (int64, error)
		ListByUser(ctx context.Context, userID int64) ([]BookingData, error)
	}

	NewBookingData struct {
		UserID        int64
		EventID       int64
		TicketsBooked int
	}

	BookingData struct {
		ID            int64
		UserID        int64
		EventID       int64
		TicketsBooked int
		Status        string
		BookedAt      time.Time
	}

	bookingService struct {
		bookingRepo   domain.BookingRepository
		notifications notification.Publisher
		transaction   persistence.Transaction
		clock         pkgtime.Clock
	}
)

func NewBooking(
	bookingRepo domain.BookingRepository,
	notifications notification.Publisher,
	transaction persistence.Transaction,
	clock pkgtime.Clock,
) Booking {
	return &bookingService{
		bookingRepo:   bookingRepo,
		notifications: notifications,
		transaction:   transaction,
		clock:         clock,
	}
}

func (s *bookingService) Create(ctx context.Context, data NewBookingData) (int64, error) {
	switch {
	case data.UserID <= 0:
		return 0, fmt.Errorf("%w: user id must be positive", ErrInvalidBookingData)
	case data.EventID <= 0:
		return 0, fmt.Errorf("%w: event id must be positive", ErrInvalidBookingData)
	case data.TicketsBooked <= 0:
		return 0, fmt.Errorf("%w: tickets booked must be positive", ErrInvalidBookingData)
	}

	booking := &domain.Booking{
		UserID:        data.UserID,
		EventID:       data.EventID,
		TicketsBooked: data.TicketsBooked,
		Status:        domain.StatusPending,
		BookedAt:      s.clock.Now(ctx),
	}

	var bookingID int64
	err := s.transaction.WithinContext(ctx, func(ctx context.Context) error {
		var err error
		bookingID, err = s.bookingRepo.Add(ctx, booking)
		if err != nil {
			return fmt.Errorf("add booking: %w", err)
		}

		return s.notifications.PublishBooked(ctx, booking.UserID, booking.EventID, booking.BookedAt)
	})

	return bookingID, err
}

func (s *bookingService) ListByUser(ctx context.Context, userID int64) ([]BookingData, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrInvalidBookingData)
	}

	bookings, err := s.bookingRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find bookings of user %d: %w", userID, err)
	}

	result := make([]BookingData, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, BookingData{
			ID:            b.ID,
			UserID:        b.UserID,
			EventID:       b.EventID,
			TicketsBooked: b.TicketsBooked,
			Status:        string(b.Status),
			BookedAt:      b.BookedAt,
		})
	}

	return result, nil
}
