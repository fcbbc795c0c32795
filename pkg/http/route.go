package http

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/gorilla/mux"
)

func getRouteName(method, path string) string {
	path = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Latin, r) || unicode.IsDigit(r) {
			return r
		}
		if r == '{' || r == '}' {
			return -1
		}
		return '_'
	}, strings.Trim(path, "/"))
	return strings.ToLower(fmt.Sprintf("%s_%s", method, path))
}

// currentRouteName keeps the label cardinality bounded by route templates.
func currentRouteName(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil || route.GetName() == "" {
		return "unknown"
	}

	return route.GetName()
}
