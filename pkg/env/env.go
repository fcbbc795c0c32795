package env

import (
	"errors"
	"fmt"
	"os"
	"strings"

	pkgstrings "github.com/klwxsrx/event-booking/pkg/strings"
)

var (
	ErrNotFound     = errors.New("env not found")
	ErrInvalidValue = errors.New("env has invalid value")
)

func Must[T any](val T, err error) T {
	if err != nil {
		panic(fmt.Errorf("parse environment: %w", err))
	}

	return val
}

func Parse[T any](key string) (T, error) {
	str, ok := os.LookupEnv(key)
	if !ok {
		var blank T
		return blank, fmt.Errorf("%w: %s with type %T", ErrNotFound, key, blank)
	}

	return parseValue[T](key, str)
}

// ParseOptional returns nil when the variable is not set.
func ParseOptional[T any](key string) (*T, error) {
	str, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	v, err := parseValue[T](key, str)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func ParseOr[T any](key string, fallback T) (T, error) {
	v, err := ParseOptional[T](key)
	if err != nil {
		return fallback, err
	}
	if v == nil {
		return fallback, nil
	}

	return *v, nil
}

func ParseList[T any](key, delimiter string) ([]T, error) {
	str, ok := os.LookupEnv(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s list", ErrNotFound, key)
	}

	parts := strings.Split(str, delimiter)
	result := make([]T, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		v, err := parseValue[T](key, part)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	return result, nil
}

func parseValue[T any](key, str string) (T, error) {
	v, err := pkgstrings.ParseTypedValue[T](strings.TrimSpace(str))
	if err != nil {
		return v, fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
	}

	return v, nil
}
