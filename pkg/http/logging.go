package http

import (
	"net/http"

	"github.com/klwxsrx/event-booking/pkg/log"
)

func WithLogging(logger log.Logger, infoLevel, errorLevel log.Level) ServerOption {
	excludedPaths := map[string]struct{}{
		HealthPath:  {},
		MetricsPath: {},
	}

	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := excludedPaths[r.URL.Path]; ok {
				handler.ServeHTTP(w, r)
				return
			}

			if requestID, ok := RequestID(r.Context()); ok {
				r = r.WithContext(logger.WithContext(r.Context(), log.Fields{"requestID": requestID}))
			}

			handler.ServeHTTP(w, r)
			meta := getHandlerMetadata(r.Context())

			entry := logger.With(log.Fields{
				"route":  currentRouteName(r),
				"method": r.Method,
				"uri":    r.RequestURI,
				"code":   meta.Code,
			})

			switch {
			case meta.Panic != nil:
				entry.With(log.Fields{
					"panic": log.Fields{
						"message": meta.Panic.Message,
						"stack":   string(meta.Panic.Stacktrace),
					},
				}).Log(r.Context(), errorLevel, "request handled with panic")
			case meta.Code >= http.StatusInternalServerError:
				entry.WithError(meta.Error).Log(r.Context(), errorLevel, "request handled with error")
			case meta.Error != nil:
				entry.WithError(meta.Error).Log(r.Context(), infoLevel, "request rejected")
			default:
				entry.Log(r.Context(), infoLevel, "request handled")
			}
		})
	})
}
