// Package middleware provides the HTTP middleware chain of the job API.
//
// Middleware is applied outermost first:
//
//	handler = middleware.Recovery(handler)
//	handler = middleware.Logging(handler)
//	handler = middleware.RequestID(handler)
//	handler = tracing.HTTPMiddleware(handler)
//
// Recovery turns handler panics into a JSON 500 response. Logging writes
// one structured line per request. RequestID accepts or generates the
// X-Request-ID header and stores it in the request context.
package middleware
