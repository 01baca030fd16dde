package errs

import "strings"

// ErrorCodeHeader carries the machine-readable code of a plain-text error.
const ErrorCodeHeader = "X-Error-Code"

// PlainTextPrefix starts every plain-text error body.
const PlainTextPrefix = "ERROR: "

// FieldError represents a field-level validation error.
//
//	{ "field": "oib", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// HTTPError is the error type understood by the global error handler.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "BAD_REQUEST", "INVALID_OIB").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Override: lets middleware decide whether to replace the message.
//   - Errors: per-field validation errors.
//   - PlainText: render as "ERROR: <Message>" text instead of JSON.
type HTTPError struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Status   int          `json:"status"`
	Override bool         `json:"override"`
	Errors   []FieldError `json:"errors"`

	PlainText bool `json:"-"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is matches any *HTTPError regardless of code or status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// Body renders the plain-text response body.
func (e *HTTPError) Body() string {
	return PlainTextPrefix + e.Message
}

// MakeUpperCaseWithUnderscores converts "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
