// Package middleware holds the HTTP middleware stack of the API server.
// Cross-cutting concerns that must also cover websocket upgrades and SSE
// streams are plain net/http middleware applied around the whole handler.
// Route-level concerns like auth and rate limits are gin handlers.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares. The first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
