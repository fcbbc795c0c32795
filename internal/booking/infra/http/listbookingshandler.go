package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/klwxsrx/event-booking/internal/booking/app/service"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
)

type ListBookingsHandler struct {
	bookingService service.Booking
}

func NewListBookingsHandler(bookingService service.Booking) ListBookingsHandler {
	return ListBookingsHandler{bookingService: bookingService}
}

func (h ListBookingsHandler) Method() string {
	return http.MethodGet
}

func (h ListBookingsHandler) Path() string {
	return "/bookings"
}

func (h ListBookingsHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		userID, err := pkghttp.Parse(pkghttp.QueryParameter[int64]("user_id"), r, nil)
		if err != nil {
			return err
		}

		bookings, err := h.bookingService.ListByUser(r.Context(), userID)
		if errors.Is(err, service.ErrInvalidBookingData) {
			w.SetStatusCode(http.StatusBadRequest)
			return nil
		}
		if err != nil {
			return err
		}

		out := make([]BookingOut, 0, len(bookings))
		for _, b := range bookings {
			out = append(out, BookingOut{
				ID:            b.ID,
				UserID:        b.UserID,
				EventID:       b.EventID,
				TicketsBooked: b.TicketsBooked,
				Status:        b.Status,
				BookedAt:      b.BookedAt,
			})
		}

		w.SetJSONBody(out)
		return nil
	}
}

type BookingOut struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	EventID       int64     `json:"event_id"`
	TicketsBooked int       `json:"tickets_booked"`
	Status        string    `json:"status"`
	BookedAt      time.Time `json:"booked_at"`
}
