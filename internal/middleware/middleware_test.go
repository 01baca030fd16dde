package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func testServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{Primary: config.Primary{Env: "test"}},
		Logger: &logger,
	}
}

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, target, nil), rec), rec
}

func TestGlobalErrorHandler(t *testing.T) {
	global := NewGlobalMiddlewares(testServer())

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantHeader string
		wantBody   string
		wantCode   string
	}{
		{
			name:       "plain text domain error",
			err:        fmt.Errorf("service: %w", errs.ClientNotFound(7)),
			wantStatus: http.StatusOK,
			wantHeader: errs.CodeClientNotFound,
			wantBody:   "ERROR: Client request under ID: 7 does not exist.",
		},
		{
			name:       "unknown route",
			err:        echo.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "method not allowed",
			err:        echo.ErrMethodNotAllowed,
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "METHOD_NOT_ALLOWED",
		},
		{
			name:       "database constraint",
			err:        &pgconn.PgError{Code: "23514", TableName: "client", ColumnName: "status"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "CLIENT_INVALID",
		},
		{
			name:       "unexpected",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/")
			global.GlobalErrorHandler(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get(errs.ErrorCodeHeader); got != tt.wantHeader {
				t.Fatalf("%s = %q, want %q", errs.ErrorCodeHeader, got, tt.wantHeader)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", rec.Body, tt.wantBody)
			}
			if tt.wantCode != "" {
				var body errs.HTTPError
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("body %q is not JSON: %v", rec.Body, err)
				}
				if body.Code != tt.wantCode {
					t.Fatalf("code = %s, want %s", body.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	handler := RequestID()(func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	c, rec := newContext(http.MethodGet, "/")
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	generated := rec.Header().Get(RequestIDHeader)
	if generated == "" || rec.Body.String() != generated {
		t.Fatalf("generated id %q, body %q", generated, rec.Body)
	}

	c, rec = newContext(http.MethodGet, "/")
	c.Request().Header.Set(RequestIDHeader, "given")
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get(RequestIDHeader) != "given" {
		t.Fatal("incoming request id was not reused")
	}

	c, rec = newContext(http.MethodGet, "/")
	c.Request().Header.Set(RequestIDHeader, "bad id\nwith newline")
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get(RequestIDHeader); got == "" || got == "bad id\nwith newline" {
		t.Fatalf("malformed request id kept: %q", got)
	}
}

func TestEnhanceContextAttachesLogger(t *testing.T) {
	ce := NewContextEnhancer(testServer())

	var fromEcho *zerolog.Logger
	var fromCtx *zerolog.Logger
	handler := ce.EnhanceContext()(func(c echo.Context) error {
		fromEcho = GetLogger(c)
		fromCtx = zerolog.Ctx(c.Request().Context())
		return nil
	})

	c, _ := newContext(http.MethodGet, "/")
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	if fromEcho == nil || fromCtx == nil {
		t.Fatal("logger missing from echo or request context")
	}
}

func TestRateLimit(t *testing.T) {
	s := testServer()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	s.Config.Server.RateLimit = 0
	unlimited := NewRateLimitMiddleware(s).Limit()(ok)
	for range 10 {
		c, _ := newContext(http.MethodGet, "/")
		if err := unlimited(c); err != nil {
			t.Fatalf("disabled limiter rejected a request: %v", err)
		}
	}

	s.Config.Server.RateLimit = 0.5
	limited := NewRateLimitMiddleware(s).Limit()(ok)

	// The limiter reports denials through c.Error, so the router's error handler writes the response.
	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(s).GlobalErrorHandler
	request := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		if err := limited(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
			t.Fatalf("limiter returned %v", err)
		}
		return rec
	}

	if rec := request(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec := request()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	var body errs.HTTPError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Code != "TOO_MANY_REQUESTS" {
		t.Fatalf("body = %q (%v)", rec.Body, err)
	}
}

func TestProtectIsNoopWhenAuthDisabled(t *testing.T) {
	auth := NewAuthMiddleware(testServer())
	called := false
	handler := auth.Protect()(func(c echo.Context) error {
		called = true
		return nil
	})

	c, _ := newContext(http.MethodPost, "/client/card")
	if err := handler(c); err != nil || !called {
		t.Fatalf("called = %v, err = %v", called, err)
	}
}
