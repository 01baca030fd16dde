// Package model holds the domain types shared by the repository,
// service and handler layers.
package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a client card request.
type Status string

const (
	// StatusRequested is assigned on creation.
	StatusRequested Status = "REQUESTED"
	// StatusStarted means a card making process is running for the request.
	StatusStarted Status = "STARTED"
	// StatusInactive means the process was stopped or the request deleted.
	StatusInactive Status = "INACTIVE"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusStarted, StatusInactive:
		return true
	}
	return false
}

// OIB bounds: an OIB is an 11 digit number.
const (
	MinOIB int64 = 10_000_000_000
	MaxOIB int64 = 100_000_000_000
)

// ValidOIB reports whether oib has exactly 11 digits.
func ValidOIB(oib int64) bool {
	return oib >= MinOIB && oib < MaxOIB
}

// Client is a single card request made by a client.
type Client struct {
	ID        int64     `json:"id"`
	OIB       int64     `json:"oib"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Summary renders the data line used in plain-text responses.
func (c *Client) Summary() string {
	return fmt.Sprintf("\nData: %s %s, OIB: %d, Status: %s.", c.FirstName, c.LastName, c.OIB, c.Status)
}

// ClientFilter selects clients by exact field equality. Nil fields are ignored
// and set fields are ANDed.
type ClientFilter struct {
	OIB       *int64
	FirstName *string
	LastName  *string
	Status    *Status
}

// Empty reports whether no field is set.
func (f ClientFilter) Empty() bool {
	return f.OIB == nil && f.FirstName == nil && f.LastName == nil && f.Status == nil
}

// Matches reports whether c satisfies every set field of the filter.
func (f ClientFilter) Matches(c Client) bool {
	if f.OIB != nil && c.OIB != *f.OIB {
		return false
	}
	if f.FirstName != nil && c.FirstName != *f.FirstName {
		return false
	}
	if f.LastName != nil && c.LastName != *f.LastName {
		return false
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	return true
}
