package model

import "testing"

func TestValidOIB(t *testing.T) {
	tests := []struct {
		oib  int64
		want bool
	}{
		{oib: 12345678901, want: true},
		{oib: MinOIB, want: true},
		{oib: MaxOIB - 1, want: true},
		{oib: MinOIB - 1, want: false},
		{oib: MaxOIB, want: false},
		{oib: 0, want: false},
		{oib: -12345678901, want: false},
	}
	for _, tt := range tests {
		if got := ValidOIB(tt.oib); got != tt.want {
			t.Errorf("ValidOIB(%d) = %v, want %v", tt.oib, got, tt.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusRequested, StatusStarted, StatusInactive} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("started").Valid() {
		t.Error("status matching is case sensitive")
	}
}

func TestClientFilterMatches(t *testing.T) {
	oib := int64(12345678901)
	first := "Ana"
	status := StatusStarted
	c := Client{ID: 1, OIB: oib, FirstName: "Ana", LastName: "Horvat", Status: StatusStarted}

	if !(ClientFilter{}).Matches(c) {
		t.Fatal("empty filter matches everything")
	}
	if !(ClientFilter{OIB: &oib, FirstName: &first, Status: &status}).Matches(c) {
		t.Fatal("expected match on all set fields")
	}
	other := "Ivan"
	if (ClientFilter{OIB: &oib, FirstName: &other}).Matches(c) {
		t.Fatal("filters are ANDed")
	}
	prefix := "An"
	if (ClientFilter{FirstName: &prefix}).Matches(c) {
		t.Fatal("matching is exact, not prefix")
	}
}

func TestSummary(t *testing.T) {
	c := Client{ID: 3, OIB: 12345678901, FirstName: "Ana", LastName: "Horvat", Status: StatusRequested}
	want := "\nData: Ana Horvat, OIB: 12345678901, Status: REQUESTED."
	if got := c.Summary(); got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
}
