package userdeletion_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion"
	"github.com/klwxsrx/event-booking/internal/pkg/userdeletion/mock"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
)

func TestHTTPRelayStore_DeleteByUser(t *testing.T) {
	t.Parallel()
	var body []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, userdeletion.RelayPath, r.URL.Path)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	store := userdeletion.NewHTTPRelayStore(pkghttp.NewClientFactory().InitClient("booking", backend.URL))

	require.NoError(t, store.DeleteByUser(context.Background(), 42))
	assert.JSONEq(t, `{"user_id":42}`, string(body))
}

func TestHTTPRelayStore_DeleteByUser_Rejected(t *testing.T) {
	t.Parallel()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer backend.Close()

	store := userdeletion.NewHTTPRelayStore(pkghttp.NewClientFactory().InitClient("booking", backend.URL))

	err := store.DeleteByUser(context.Background(), 42)
	assert.ErrorIs(t, err, userdeletion.ErrRelayRejected)
}

func TestRelayHTTPHandler(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		body         string
		expectDelete bool
		wantCode     int
	}{
		{name: "deletes records", body: `{"user_id":42}`, expectDelete: true, wantCode: http.StatusNoContent},
		{name: "zero user id", body: `{"user_id":0}`, wantCode: http.StatusBadRequest},
		{name: "string user id", body: `{"user_id":"42"}`, wantCode: http.StatusBadRequest},
		{name: "not json", body: `user_id=42`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			store := mock.NewDependentRecordStore(ctrl)
			if tt.expectDelete {
				store.EXPECT().DeleteByUser(gomock.Any(), int64(42)).Return(nil)
			}

			srv := pkghttp.NewServer(pkghttp.DefaultServerAddress)
			srv.Register(userdeletion.NewRelayHTTPHandler(userdeletion.NewHandler(store)))

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, userdeletion.RelayPath, bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRelay_EndToEnd(t *testing.T) {
	t.Parallel()
	bookings := newMemoryStore(map[int64]int{42: 3, 7: 1})
	srv := pkghttp.NewServer(pkghttp.DefaultServerAddress)
	srv.Register(userdeletion.NewRelayHTTPHandler(userdeletion.NewHandler(bookings)))
	backend := httptest.NewServer(srv)
	defer backend.Close()

	store := userdeletion.NewHTTPRelayStore(pkghttp.NewClientFactory().InitClient("booking", backend.URL))
	require.NoError(t, store.DeleteByUser(context.Background(), 42))
	require.NoError(t, store.DeleteByUser(context.Background(), 42))

	records, deletes := bookings.snapshot()
	assert.Equal(t, map[int64]int{7: 1}, records)
	assert.Equal(t, 2, deletes)
}
