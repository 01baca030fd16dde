package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPError
		wantCode string
		wantBody string
	}{
		{"invalid oib", InvalidOIB(int64(123)), CodeInvalidOIB, "ERROR: Invalid OIB: 123"},
		{"invalid id", InvalidID("abc"), CodeInvalidID, "ERROR: Invalid ID: abc"},
		{"not found", ClientNotFound(9), CodeClientNotFound, "ERROR: Client request under ID: 9 does not exist."},
		{
			"missing data",
			MissingData("Client request not created.", []string{"oib", "firstName"}),
			CodeMissingData,
			"ERROR: Client request not created. Missing data: oib, firstName",
		},
		{"invalid status", InvalidStatus("DONE"), CodeInvalidStatus, "ERROR: Invalid status: DONE"},
		{"invalid name", InvalidName("lastName"), CodeInvalidName, "ERROR: Invalid lastName: must not contain ':' or line breaks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if got := tt.err.Body(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if !tt.err.PlainText || tt.err.Status != http.StatusOK {
				t.Errorf("domain errors are plain text with 200, got %+v", tt.err)
			}
		})
	}
}

func TestHTTPErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ClientNotFound(1))

	var httpErr *HTTPError
	if !errors.As(wrapped, &httpErr) {
		t.Fatal("errors.As should find the HTTPError")
	}
	if !errors.Is(wrapped, NewInternalServerError()) {
		t.Fatal("any HTTPError matches another HTTPError")
	}
}

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	if got := MakeUpperCaseWithUnderscores("Too Many Requests"); got != "TOO_MANY_REQUESTS" {
		t.Fatalf("got %s", got)
	}
}
