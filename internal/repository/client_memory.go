package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/deppfellow/cardapi/internal/model"
)

// MemoryClientRepository keeps client requests in a map. Ids are never reused.
type MemoryClientRepository struct {
	mu      sync.RWMutex
	clients map[int64]model.Client
	nextID  int64
}

// NewMemoryClientRepository returns an empty store whose first id is 1.
func NewMemoryClientRepository() *MemoryClientRepository {
	return &MemoryClientRepository{
		clients: make(map[int64]model.Client),
		nextID:  1,
	}
}

func (r *MemoryClientRepository) Create(_ context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	c.ID = r.nextID
	c.CreatedAt = now
	c.UpdatedAt = now
	r.nextID++
	r.clients[c.ID] = *c
	return nil
}

func (r *MemoryClientRepository) Update(_ context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.clients[c.ID]
	if !ok {
		return ErrClientNotFound
	}
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	r.clients[c.ID] = *c
	return nil
}

func (r *MemoryClientRepository) FindByID(_ context.Context, id int64) (*model.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return &c, nil
}

func (r *MemoryClientRepository) FindAll(_ context.Context, filter model.ClientFilter) ([]model.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(filter.Matches), nil
}

func (r *MemoryClientRepository) FindByOIB(_ context.Context, oib int64) ([]model.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(c model.Client) bool { return c.OIB == oib }), nil
}

func (r *MemoryClientRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[id]; !ok {
		return ErrClientNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *MemoryClientRepository) DeleteByOIB(_ context.Context, oib int64) ([]model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := r.collect(func(c model.Client) bool { return c.OIB == oib })
	for _, c := range deleted {
		delete(r.clients, c.ID)
	}
	return deleted, nil
}

// collect returns matching clients ordered by id. Callers hold the lock.
func (r *MemoryClientRepository) collect(match func(model.Client) bool) []model.Client {
	out := []model.Client{}
	for _, c := range r.clients {
		if match(c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.Client) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
