// Package server provides HTTP routing, middleware, and the sync API surface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Sync API
//
// [SyncHandler] exposes the workflow surface: POST /api/v1/sync submits a
// song placement request and returns immediately with a workflow id;
// GET /api/v1/sync/{id} reports progress, result, or failure for that id.
// Both execution backends produce identical payloads through this surface.
//
// # OAuth Callback Handler
//
// [CallbackHandler] implements the OAuth2 authorization code callback flow
// used by the CLI login command. It validates the state parameter, exchanges
// the authorization code for tokens, and sends the result through a channel.
// It only processes one callback to prevent replay attacks.
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the sync service.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}
