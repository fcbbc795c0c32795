package http

import (
	"errors"
	"net/http"

	"github.com/klwxsrx/event-booking/internal/booking/app/service"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
)

type CreateBookingHandler struct {
	bookingService service.Booking
}

func NewCreateBookingHandler(bookingService service.Booking) CreateBookingHandler {
	return CreateBookingHandler{bookingService: bookingService}
}

func (h CreateBookingHandler) Method() string {
	return http.MethodPost
}

func (h CreateBookingHandler) Path() string {
	return "/bookings"
}

func (h CreateBookingHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		in, err := pkghttp.Parse(pkghttp.JSONBody[CreateBookingIn](), r, nil)
		if err != nil {
			return err
		}

		bookingID, err := h.bookingService.Create(r.Context(), service.NewBookingData{
			UserID:        in.UserID,
			EventID:       in.EventID,
			TicketsBooked: in.TicketsBooked,
		})
		if errors.Is(err, service.ErrInvalidBookingData) {
			w.SetStatusCode(http.StatusBadRequest)
			return nil
		}
		if err != nil {
			return err
		}

		w.SetStatusCode(http.StatusCreated).SetJSONBody(createBookingOut{ID: bookingID})
		return nil
	}
}

type (
	CreateBookingIn struct {
		UserID        int64 `json:"user_id"`
		EventID       int64 `json:"event_id"`
		TicketsBooked int   `json:"tickets_booked"`
	}

	createBookingOut struct {
		ID int64 `json:"id"`
	}
)
