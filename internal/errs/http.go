package errs

import (
	"fmt"
	"net/http"
	"strings"
)

// Domain error codes sent in the X-Error-Code header.
const (
	CodeInvalidOIB       = "INVALID_OIB"
	CodeInvalidID        = "INVALID_ID"
	CodeInvalidStatus    = "INVALID_STATUS"
	CodeInvalidName      = "INVALID_NAME"
	CodeMissingData      = "MISSING_DATA"
	CodeClientNotFound   = "CLIENT_NOT_FOUND"
	CodeMalformedRequest = "MALFORMED_REQUEST"
	CodeDeleteFailed     = "DELETE_FAILED"
)

// NewDomainError creates a plain-text error.
//
// Domain errors are answered with 200 OK and a body starting with "ERROR: ";
// clients tell them apart by text or by the X-Error-Code header.
func NewDomainError(code, message string) *HTTPError {
	return &HTTPError{
		Code:      code,
		Message:   message,
		Status:    http.StatusOK,
		Override:  true,
		PlainText: true,
	}
}

// InvalidOIB rejects an OIB outside the 11 digit range. value is printed as received.
func InvalidOIB(value any) *HTTPError {
	return NewDomainError(CodeInvalidOIB, fmt.Sprintf("Invalid OIB: %v", value))
}

// InvalidID rejects an id that is not a positive integer.
func InvalidID(value any) *HTTPError {
	return NewDomainError(CodeInvalidID, fmt.Sprintf("Invalid ID: %v", value))
}

// InvalidStatus rejects an unknown status filter.
func InvalidStatus(value string) *HTTPError {
	return NewDomainError(CodeInvalidStatus, fmt.Sprintf("Invalid status: %s", value))
}

// InvalidName rejects a name containing ':' or a line break. The value is
// not echoed back since it may span lines.
func InvalidName(field string) *HTTPError {
	return NewDomainError(CodeInvalidName, fmt.Sprintf("Invalid %s: must not contain ':' or line breaks", field))
}

// ClientNotFound reports a missing client request.
func ClientNotFound(id int64) *HTTPError {
	return NewDomainError(CodeClientNotFound, fmt.Sprintf("Client request under ID: %d does not exist.", id))
}

// MissingData lists absent required fields after the given action prefix,
// e.g. "Client request not created. Missing data: oib, lastName".
func MissingData(action string, fields []string) *HTTPError {
	return NewDomainError(CodeMissingData, fmt.Sprintf("%s Missing data: %s", action, strings.Join(fields, ", ")))
}

// MalformedRequest reports a body or parameter that could not be decoded.
func MalformedRequest(reason string) *HTTPError {
	return NewDomainError(CodeMalformedRequest, "Malformed request: "+reason)
}

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
func NewUnauthorizedError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     MakeUpperCaseWithUnderscores(http.StatusText(http.StatusUnauthorized)),
		Message:  message,
		Status:   http.StatusUnauthorized,
		Override: override,
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// code overrides the default "BAD_REQUEST" when non-nil; errors carries
// field-level validation failures.
func NewBadRequestError(message string, override bool, code *string, errors []FieldError) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(http.StatusBadRequest))
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusBadRequest,
		Override: override,
		Errors:   errors,
	}
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(http.StatusNotFound))
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusNotFound,
		Override: override,
	}
}

// NewTooManyRequestsError creates a 429 HTTPError for the rate limiter.
func NewTooManyRequestsError() *HTTPError {
	return &HTTPError{
		Code:    MakeUpperCaseWithUnderscores(http.StatusText(http.StatusTooManyRequests)),
		Message: http.StatusText(http.StatusTooManyRequests),
		Status:  http.StatusTooManyRequests,
	}
}

// NewInternalServerError creates a generic 500. The real cause is logged, never sent.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:    MakeUpperCaseWithUnderscores(http.StatusText(http.StatusInternalServerError)),
		Message: http.StatusText(http.StatusInternalServerError),
		Status:  http.StatusInternalServerError,
	}
}

// ValidationError converts a generic validation error into a 400 Bad Request.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil)
}
