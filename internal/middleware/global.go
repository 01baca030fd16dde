package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/deppfellow/cardapi/internal/sqlerr"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// GlobalMiddlewares groups middleware applied to every route and the global error handler.
type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{server: s}
}

func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  global.server.Config.Server.CORSAllowedOrigins,
		ExposeHeaders: []string{errs.ErrorCodeHeader, RequestIDHeader},
	})
}

// RequestLogger writes one "API" line per request with severity by status.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// The error handler runs after this, so derive the status from the error.
			// See https://github.com/labstack/echo/issues/2310
			statusCode := v.Status
			errorCode := ""
			if v.Error != nil {
				var httpErr *errs.HTTPError
				var echoErr *echo.HTTPError
				if errors.As(v.Error, &httpErr) {
					statusCode = httpErr.Status
					errorCode = httpErr.Code
				} else if errors.As(v.Error, &echoErr) {
					statusCode = echoErr.Code
				}
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			if errorCode != "" {
				e = e.Str("error_code", errorCode)
			}
			if userID := GetUserID(c); userID != "" {
				e = e.Str("user_id", userID)
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the single place errors become responses.
//
// Plain-text domain errors are written as "ERROR: <message>" with their
// status and the X-Error-Code header. Everything else is rendered as a JSON
// HTTPError; unknown errors are classified by sqlerr first.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	originalErr := err

	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			if echoErr.Code == http.StatusNotFound {
				err = errs.NewNotFoundError("Route not found", false, nil)
			}
		} else {
			err = sqlerr.HandleError(err)
		}
	}

	logger := GetLogger(c)

	if errors.As(err, &httpErr) && httpErr.PlainText {
		logger.Info().
			Str("error_code", httpErr.Code).
			Msg(httpErr.Message)

		if !c.Response().Committed {
			c.Response().Header().Set(errs.ErrorCodeHeader, httpErr.Code)
			_ = c.String(httpErr.Status, httpErr.Body())
		}
		return
	}

	response := toResponse(err)

	logger.Error().Stack().
		Err(originalErr).
		Int("status", response.Status).
		Str("error_code", response.Code).
		Msg(response.Message)

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(response.Status)
			return
		}
		_ = c.JSON(response.Status, response)
	}
}

// toResponse maps any error to the JSON error schema.
func toResponse(err error) *errs.HTTPError {
	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.As(err, &echoErr):
		message, ok := echoErr.Message.(string)
		if !ok {
			message = http.StatusText(echoErr.Code)
		}
		return &errs.HTTPError{
			Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code)),
			Message: message,
			Status:  echoErr.Code,
		}
	default:
		return errs.NewInternalServerError()
	}
}

// writeJSONError writes an HTTPError outside echo, e.g. from net/http middleware.
func writeJSONError(w http.ResponseWriter, httpErr *errs.HTTPError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(httpErr)
}
