package repository

import (
	"context"
	"errors"

	"github.com/deppfellow/cardapi/internal/model"
)

// ErrClientNotFound is returned when no client request has the given id.
var ErrClientNotFound = errors.New("client request not found")

// ClientRepository stores client card requests.
//
// Lists are ordered by ascending id. Create assigns ID and timestamps to c.
type ClientRepository interface {
	Create(ctx context.Context, c *model.Client) error
	Update(ctx context.Context, c *model.Client) error
	FindByID(ctx context.Context, id int64) (*model.Client, error)
	FindAll(ctx context.Context, filter model.ClientFilter) ([]model.Client, error)
	FindByOIB(ctx context.Context, oib int64) ([]model.Client, error)
	DeleteByID(ctx context.Context, id int64) error
	// DeleteByOIB removes every request for oib and returns the removed rows.
	DeleteByOIB(ctx context.Context, oib int64) ([]model.Client, error)
}
