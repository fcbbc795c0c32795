package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	pkgstrings "github.com/klwxsrx/event-booking/pkg/strings"
)

var ErrParsingError = errors.New("failed to parse request")

type RequestDataProvider[T any] func(*http.Request) (T, error)

// Parse skips the provider when lastErr is set, so a chain of calls is checked once.
func Parse[T any](provider RequestDataProvider[T], from *http.Request, lastErr error) (T, error) {
	if lastErr != nil {
		var result T
		return result, lastErr
	}
	result, err := provider(from)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrParsingError, err)
	}
	return result, nil
}

func PathParameter[T any](param string) RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		paramValue, ok := mux.Vars(r)[param]
		if !ok {
			var result T
			return result, fmt.Errorf("path parameter %s not found", param)
		}
		return pkgstrings.ParseTypedValue[T](paramValue)
	}
}

func QueryParameter[T any](param string) RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		value := r.URL.Query().Get(param)
		if value == "" {
			var result T
			return result, fmt.Errorf("query parameter %s not found", param)
		}
		return pkgstrings.ParseTypedValue[T](value)
	}
}

func Header[T any](key string) RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		header := r.Header.Get(key)
		if header == "" {
			var result T
			return result, fmt.Errorf("header %s not found", key)
		}
		return pkgstrings.ParseTypedValue[T](header)
	}
}

func JSONBody[T any]() RequestDataProvider[T] {
	return func(r *http.Request) (T, error) {
		var body T
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			return body, fmt.Errorf("decode json body: %w", err)
		}
		return body, nil
	}
}
