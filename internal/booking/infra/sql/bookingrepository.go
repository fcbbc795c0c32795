package sql

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/klwxsrx/event-booking/internal/booking/domain"
	pkgsql "github.com/klwxsrx/event-booking/pkg/sql"
)

const bookingTable = "booking"

type BookingRepository struct {
	db pkgsql.Client
}

// NewBookingRepository also serves as the user deletion store of the booking service.
func NewBookingRepository(db pkgsql.Client) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Add(ctx context.Context, booking *domain.Booking) (int64, error) {
	query, args, err := sq.
		Insert(bookingTable).
		Columns("user_id", "event_id", "tickets_booked", "status", "booked_at").
		Values(booking.UserID, booking.EventID, booking.TicketsBooked, booking.Status, booking.BookedAt).
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

func (r *BookingRepository) FindByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	query, args, err := sq.
		Select("id", "user_id", "event_id", "tickets_booked", "status", "booked_at").
		From(bookingTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []sqlxBooking
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.Booking{
			ID:            row.ID,
			UserID:        row.UserID,
			EventID:       row.EventID,
			TicketsBooked: row.TicketsBooked,
			Status:        domain.Status(row.Status),
			BookedAt:      row.BookedAt,
		})
	}

	return result, nil
}

func (r *BookingRepository) DeleteByUser(ctx context.Context, userID int64) error {
	query, args, err := sq.
		Delete(bookingTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete bookings of user %d: %w", userID, err)
	}

	return nil
}

type sqlxBooking struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	EventID       int64     `db:"event_id"`
	TicketsBooked int       `db:"tickets_booked"`
	Status        string    `db:"status"`
	BookedAt      time.Time `db:"booked_at"`
}
