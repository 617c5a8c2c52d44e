// Package apis is the HTTP adapter (spec.md §6.1): it translates subrequest
// headers into an authorize.Request and a Decision into an HTTP response. It
// holds no authorization logic of its own; every decision is made by the core.
package apis

import (
	"net/http"

	"github.com/gorilla/mux"
)

// MethodHandlers is a dict of method-name (lowercase) to endpoint handler.
type MethodHandlers map[string]http.HandlerFunc

// registerPathPrefix registers new method handlers for a path prefix and
// returns the subrouter so the caller can attach further nested prefixes.
func registerPathPrefix(parent *mux.Router, prefix string, handler MethodHandlers) *mux.Router {
	router := parent.PathPrefix(prefix).Subrouter()
	for method, handler := range handler {
		router.Methods(method).Path("").HandlerFunc(handler)
	}
	return router
}
