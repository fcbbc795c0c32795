package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
)

type HandlerFunc func(w ResponseWriter, r *http.Request) (err error)

type Handler interface {
	Method() string
	Path() string
	HTTPHandler() HandlerFunc
}

type ResponseWriter interface {
	SetHeader(key, value string) ResponseWriter
	SetStatusCode(httpCode int) ResponseWriter
	SetJSONBody(data any) ResponseWriter
}

type responseWriter struct {
	impl         http.ResponseWriter
	errorMapping []errorMapping

	body     []byte
	bodySet  bool
	bodyData any
	httpCode int
}

func (w *responseWriter) SetHeader(key, value string) ResponseWriter {
	w.impl.Header().Set(key, value)
	return w
}

func (w *responseWriter) SetStatusCode(httpCode int) ResponseWriter {
	w.httpCode = httpCode
	return w
}

func (w *responseWriter) SetJSONBody(data any) ResponseWriter {
	w.bodySet = true
	w.bodyData = data
	return w
}

func (w *responseWriter) Write(ctx context.Context, err error) {
	meta := getHandlerMetadata(ctx)
	httpCode := w.httpCode

	if err == nil && w.bodySet {
		w.body, err = json.Marshal(w.bodyData)
		if err != nil {
			err = fmt.Errorf("encode body: %w", err)
		}
	}

	if err != nil {
		var ok bool
		httpCode, ok = mapErrorCode(err, w.errorMapping)
		if !ok {
			httpCode = http.StatusInternalServerError
		}
		w.body = nil
	}

	meta.Code = httpCode
	meta.Error = err

	if w.body != nil {
		w.impl.Header().Set("Content-Type", "application/json")
	}
	w.impl.WriteHeader(httpCode)
	if w.body != nil {
		_, _ = w.impl.Write(w.body)
	}
}

func (w *responseWriter) WritePanic(ctx context.Context, p Panic) {
	meta := getHandlerMetadata(ctx)
	meta.Code = http.StatusInternalServerError
	meta.Panic = &p

	w.impl.WriteHeader(http.StatusInternalServerError)
}

func httpHandlerWrapper(handler HandlerFunc, mapping []errorMapping) http.HandlerFunc {
	recoverPanic := func(r *http.Request, respWriter *responseWriter) {
		msg := recover()
		if msg == nil {
			return
		}

		respWriter.WritePanic(r.Context(), Panic{
			Message:    fmt.Sprintf("%v", msg),
			Stacktrace: debug.Stack(),
		})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		respWriter := &responseWriter{
			impl:         w,
			errorMapping: append([]errorMapping{{code: http.StatusBadRequest, errs: []error{ErrParsingError}}}, mapping...),
			httpCode:     http.StatusOK,
		}

		defer recoverPanic(r, respWriter)
		err := handler(respWriter, r)
		respWriter.Write(r.Context(), err)
	}
}
