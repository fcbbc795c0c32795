package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/metric"
)

func TestClientFactory_InitClient(t *testing.T) {
	t.Parallel()
	var gotRequestID string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(pkghttp.RequestIDHeader)
		assert.Equal(t, "/delete_user_events/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	factory := pkghttp.NewClientFactory(
		pkghttp.WithRequestIDPropagation(),
		pkghttp.WithRequestMetrics(metric.NewMetricsStub()),
		pkghttp.WithRequestLogging(log.New(log.LevelDisabled), log.LevelInfo, log.LevelWarn),
	)
	client := factory.InitClient("booking", backend.URL)

	ctx := pkghttp.WithRequestIDContext(context.Background(), "req-42")
	resp, err := client.NewRequest(ctx).Post("/delete_user_events/")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Equal(t, "req-42", gotRequestID)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	client := pkghttp.NewClientFactory().InitClient(
		"ticketing",
		backend.URL,
		pkghttp.WithClientRetry(3, time.Millisecond),
		pkghttp.WithClientTimeout(time.Second),
	)

	resp, err := client.NewRequest(context.Background()).Get("/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int32(3), calls.Load())
}
