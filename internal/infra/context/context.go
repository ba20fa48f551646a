// Package context holds the request-scoped values shared between middlewares,
// guards and handlers. Import it as context_ next to the standard library.
package context

type contextKey string
