package http

import (
	"net/http"
	"time"

	"github.com/klwxsrx/event-booking/pkg/metric"
)

func WithMetrics(metrics metric.Metrics) ServerOption {
	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			handler.ServeHTTP(w, r)
			result := getHandlerMetadata(r.Context())

			labels := metric.Labels{
				"method": r.Method,
				"route":  currentRouteName(r),
			}
			if result.Panic != nil {
				metrics.With(labels).Increment("http_api_request_panics_total")
			}

			metrics.With(labels).
				WithLabel("code", result.Code).
				Duration("http_api_request_duration_seconds", time.Since(started))
		})
	})
}
