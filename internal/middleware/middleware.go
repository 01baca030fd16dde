// Package middleware holds the global and route-specific echo middleware:
// request ids, request-scoped loggers, New Relic tracing, Clerk
// authentication, rate limiting and the global error handler.
package middleware
