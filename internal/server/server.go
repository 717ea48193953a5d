// package server contains middleware & handlers for the gateway webhook listener
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// The listener stacks request logging and shared-secret verification this way.
type Middleware func(http.Handler) http.Handler

// Handler is a routable endpoint of the webhook listener. Routes returns the
// method-qualified patterns ("POST /webhooks/gateway") the handler serves, so
// registration stays next to the handler that owns the path.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and middleware. Middleware applies only to
// handlers registered after it, which is how the health probe stays outside
// the secret check.
type Router interface {
	Use(middleware ...Middleware)
	Handle(pattern string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
