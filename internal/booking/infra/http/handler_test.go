package http_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/event-booking/internal/booking/app/service"
	"github.com/klwxsrx/event-booking/internal/booking/domain"
	"github.com/klwxsrx/event-booking/internal/booking/domain/mock"
	bookinghttp "github.com/klwxsrx/event-booking/internal/booking/infra/http"
	"github.com/klwxsrx/event-booking/internal/pkg/notification"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
	"github.com/klwxsrx/event-booking/pkg/message/stub"
	persistencestub "github.com/klwxsrx/event-booking/pkg/persistence/stub"
	pkgtime "github.com/klwxsrx/event-booking/pkg/time"
)

func newServer(t *testing.T) (pkghttp.Server, *mock.BookingRepository) {
	t.Helper()

	repo := mock.NewBookingRepository(gomock.NewController(t))
	bookingService := service.NewBooking(repo, notification.NewPublisher(stub.NewBroker()), persistencestub.NewTransaction(), pkgtime.NewClock())

	srv := pkghttp.NewServer(pkghttp.DefaultServerAddress)
	srv.Register(bookinghttp.NewCreateBookingHandler(bookingService))
	srv.Register(bookinghttp.NewListBookingsHandler(bookingService))
	return srv, repo
}

func serve(srv http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestCreateBookingHandler(t *testing.T) {
	t.Parallel()
	srv, repo := newServer(t)

	repo.EXPECT().Add(gomock.Any(), gomock.Any()).Return(int64(100), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(`{"user_id":42,"event_id":3,"tickets_booked":2}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":100}`, rec.Body.String())

	rec = serve(srv, httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(`{"user_id":42,"event_id":3,"tickets_booked":0}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBookingsHandler(t *testing.T) {
	t.Parallel()
	srv, repo := newServer(t)

	repo.EXPECT().FindByUser(gomock.Any(), int64(42)).Return([]domain.Booking{
		{ID: 1, UserID: 42, EventID: 3, TicketsBooked: 2, Status: domain.StatusPending},
	}, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/bookings?user_id=42", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event_id":3`)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/bookings", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
