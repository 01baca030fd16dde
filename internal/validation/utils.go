// Package validation binds request data and validates it.
//
// Domain validation failures come back as plain-text *errs.HTTPError values
// and pass through unchanged. Struct tag failures from go-playground/validator
// are converted into a 400 with field-level errors.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validatable is implemented by request types. Validate may normalize the
// request, e.g. parse raw path parameters into typed fields.
type Validatable interface {
	Validate() error
}

// CustomValidationError is a single field failure that struct tags cannot express.
type CustomValidationError struct {
	Field   string
	Message string
}

// CustomValidationErrors satisfies error.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

// BindAndValidate binds path, query and body data into payload, then validates it.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		return errs.MalformedRequest(bindErrorMessage(err))
	}

	if err := payload.Validate(); err != nil {
		var httpErr *errs.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		msg, fieldErrors := extractValidationError(err)
		if fieldErrors == nil {
			return errs.ValidationError(err)
		}
		return errs.NewBadRequestError(msg, true, nil, fieldErrors)
	}

	return nil
}

// bindErrorMessage names the offending JSON field and what it must be,
// without exposing Go type names or decoder offsets.
func bindErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if i := strings.LastIndex(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if field == "" {
			return "body must be a JSON object"
		}
		return field + " " + expectedKind(typeErr.Type)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "invalid JSON"
	case errors.Is(err, echo.ErrUnsupportedMediaType):
		return "unsupported content type"
	}
	return "invalid request body"
}

func expectedKind(t reflect.Type) string {
	if t == nil {
		return "has the wrong type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "must be a number"
	case reflect.String:
		return "must be a string"
	case reflect.Bool:
		return "must be true or false"
	case reflect.Slice, reflect.Array:
		return "must be an array"
	case reflect.Map, reflect.Struct:
		return "must be an object"
	}
	return "has the wrong type"
}

func extractValidationError(err error) (string, []errs.FieldError) {
	var fieldErrors []errs.FieldError

	var customErrors CustomValidationErrors
	if errors.As(err, &customErrors) {
		for _, e := range customErrors {
			fieldErrors = append(fieldErrors, errs.FieldError{Field: e.Field, Error: e.Message})
		}
		return "Validation failed", fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error(), nil
	}

	for _, e := range validationErrors {
		field := jsonFieldName(e.Field())
		var msg string

		switch e.Tag() {
		case "required":
			msg = "is required"
		case "min":
			if e.Kind() == reflect.String {
				msg = fmt.Sprintf("must be at least %s characters", e.Param())
			} else {
				msg = fmt.Sprintf("must be at least %s", e.Param())
			}
		case "max":
			if e.Kind() == reflect.String {
				msg = fmt.Sprintf("must not exceed %s characters", e.Param())
			} else {
				msg = fmt.Sprintf("must not exceed %s", e.Param())
			}
		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", e.Param())
		default:
			if e.Param() != "" {
				msg = fmt.Sprintf("%s: %s:%s", field, e.Tag(), e.Param())
			} else {
				msg = fmt.Sprintf("%s: %s", field, e.Tag())
			}
		}

		fieldErrors = append(fieldErrors, errs.FieldError{Field: field, Error: msg})
	}

	return "Validation failed", fieldErrors
}

// jsonFieldName lowercases the first letter so "FirstName" reads "firstName"
// and "OIB" reads "oib", matching the JSON keys.
func jsonFieldName(name string) string {
	if name == "" || strings.ToUpper(name) == name {
		return strings.ToLower(name)
	}
	return strings.ToLower(name[:1]) + name[1:]
}
