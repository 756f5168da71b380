package middleware

type ctxKey int

// Request-scoped values set by this package.
const (
	// RequestIDKey holds the X-Request-ID of the request.
	RequestIDKey ctxKey = iota

	// StartTimeKey holds the time the logging middleware saw the request.
	StartTimeKey
)
