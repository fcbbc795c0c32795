package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const (
	DefaultServerAddress = ":8080"

	defaultReadTimeout       = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 15 * time.Second
)

type (
	ServerOption     func(*server)
	ServerMiddleware func(http.Handler) http.Handler
)

type HandlerRegistry interface {
	Register(handler Handler)
}

type Server interface {
	http.Handler
	HandlerRegistry
	Listener(context.Context) error
}

type server struct {
	srv          *http.Server
	router       *mux.Router
	errorMapping []errorMapping
}

func NewServer(
	address string,
	opts ...ServerOption,
) Server {
	router := withHandlerMetadata(mux.NewRouter())
	s := &server{
		srv: &http.Server{
			Addr:              address,
			Handler:           router,
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
		},
		router: router,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Listener serves until ctx is done, then waits for active requests up to the shutdown timeout.
func (s *server) Listener(ctx context.Context) error {
	serverDone := make(chan error, 1)
	go func() {
		err := s.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serverDone <- err
	}()

	var err error
	select {
	case err = <-serverDone:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
		defer cancel()

		err = s.srv.Shutdown(shutdownCtx)
		if err != nil {
			err = fmt.Errorf("shutdown: %w", err)
		}
	}
	if err != nil {
		return fmt.Errorf("http listener %s: %w", s.srv.Addr, err)
	}

	return nil
}

func (s *server) Register(handler Handler) {
	s.router.
		Name(getRouteName(handler.Method(), handler.Path())).
		Methods(handler.Method()).
		Path(handler.Path()).
		Handler(httpHandlerWrapper(handler.HTTPHandler(), s.errorMapping))
}

func WithMW(mw ServerMiddleware) ServerOption {
	return func(s *server) {
		s.router.Use(mux.MiddlewareFunc(mw))
	}
}

// WithErrorMapping sets response codes for handler errors, 500 is used for unmapped errors.
func WithErrorMapping(statusCodes map[int][]error) ServerOption {
	return func(s *server) {
		for statusCode, errs := range statusCodes {
			s.errorMapping = append(s.errorMapping, errorMapping{
				code: statusCode,
				errs: errs,
			})
		}
	}
}

type errorMapping struct {
	code int
	errs []error
}

func mapErrorCode(err error, mapping []errorMapping) (int, bool) {
	for _, m := range mapping {
		for _, expected := range m.errs {
			if errors.Is(err, expected) {
				return m.code, true
			}
		}
	}

	return 0, false
}
