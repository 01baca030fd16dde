package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapCode(t *testing.T) {
	tests := map[string]Code{
		"23505": UniqueViolation,
		"23514": CheckViolation,
		"23502": NotNullViolation,
		"08006": ConnectionFailure,
		"XX000": Other,
	}
	for in, want := range tests {
		if got := MapCode(in); got != want {
			t.Errorf("MapCode(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "check violation on status",
			err:        fmt.Errorf("update: %w", &pgconn.PgError{Code: "23514", Severity: "ERROR", TableName: "client", ColumnName: "status"}),
			wantStatus: http.StatusBadRequest,
			wantCode:   "CLIENT_INVALID",
			wantMsg:    "The Status value does not meet required conditions",
		},
		{
			name:       "not null",
			err:        &pgconn.PgError{Code: "23502", TableName: "client", ColumnName: "first_name"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "CLIENT_REQUIRED",
			wantMsg:    "The First Name is required",
		},
		{
			name:       "unique",
			err:        &pgconn.PgError{Code: "23505", TableName: "clients", ConstraintName: "clients_oib_key"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "CLIENT_ALREADY_EXISTS",
			wantMsg:    "A Client with this Oib already exists",
		},
		{
			name:       "no rows",
			err:        fmt.Errorf("find: %w", pgx.ErrNoRows),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "Resource not found",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
			wantMsg:    "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var httpErr *errs.HTTPError
			if !errors.As(HandleError(tt.err), &httpErr) {
				t.Fatal("expected an HTTPError")
			}
			if httpErr.Status != tt.wantStatus || httpErr.Code != tt.wantCode || httpErr.Message != tt.wantMsg {
				t.Fatalf("got %d %s %q", httpErr.Status, httpErr.Code, httpErr.Message)
			}
		})
	}
}

func TestHandleErrorPassesHTTPErrorThrough(t *testing.T) {
	in := errs.ClientNotFound(4)
	if out := HandleError(in); out != error(in) {
		t.Fatalf("expected the same error back, got %v", out)
	}
}
