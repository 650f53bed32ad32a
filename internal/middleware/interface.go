package middleware

import "net/http"

// Middleware wraps the next handler.
type Middleware interface {
	Wrap(next http.Handler) http.Handler
}

// Func adapts a plain function to Middleware.
type Func func(next http.Handler) http.Handler

func (f Func) Wrap(next http.Handler) http.Handler { return f(next) }

// Entry is a registered middleware.
type Entry struct {
	Name       string
	Priority   int
	Middleware Middleware
}

// Factory turns an entry into the middleware actually run.
type Factory interface {
	Create(entry Entry) Middleware
}
