package http

import (
	"net/http"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// WithRequestID takes the request id from the header or generates a new one.
func WithRequestID() ServerOption {
	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, requestID)
			handler.ServeHTTP(w, r.WithContext(WithRequestIDContext(r.Context(), requestID)))
		})
	})
}
