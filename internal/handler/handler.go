// Package handler is the HTTP layer. Handlers bind and validate requests
// through the typed pipeline in base.go, call the service layer and write
// JSON or plain-text responses.
package handler
