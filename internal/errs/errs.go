// Package errs defines the error types returned to API clients.
//
// Two shapes exist: JSON HTTPErrors with a real status code for transport and
// infrastructure failures, and plain-text domain errors ("ERROR: ...") for
// everything a client can cause through the card request API.
package errs
