package http

import (
	"encoding/json"
	"net/http"
)

const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

func WithHealthCheck(customHandlerFunc http.HandlerFunc) ServerOption {
	defaultHandler := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct {
			Status string `json:"status"`
		}{
			Status: "OK",
		})
	}

	return func(s *server) {
		handler := defaultHandler
		if customHandlerFunc != nil {
			handler = customHandlerFunc
		}

		s.router.
			Name(getRouteName(http.MethodGet, HealthPath)).
			Methods(http.MethodGet).
			Path(HealthPath).
			HandlerFunc(handler)
	}
}

func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *server) {
		s.router.
			Name(getRouteName(http.MethodGet, MetricsPath)).
			Methods(http.MethodGet).
			Path(MetricsPath).
			Handler(handler)
	}
}
