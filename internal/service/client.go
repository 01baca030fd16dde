package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/deppfellow/cardapi/internal/model"
	"github.com/deppfellow/cardapi/internal/repository"
	"github.com/rs/zerolog"
)

// ClientService manages client card requests.
type ClientService struct {
	repo    repository.ClientRepository
	process *ProcessService
	logger  *zerolog.Logger
}

// NewClientService creates a ClientService. process supplies the marker
// lock and sync used by edits and deletes.
func NewClientService(repo repository.ClientRepository, process *ProcessService, logger *zerolog.Logger) *ClientService {
	return &ClientService{repo: repo, process: process, logger: logger}
}

// List returns the requests matching filter, ordered by id.
func (s *ClientService) List(ctx context.Context, filter model.ClientFilter) ([]model.Client, error) {
	clients, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// ListByOIB returns every request for oib. No match yields an empty slice.
func (s *ClientService) ListByOIB(ctx context.Context, oib int64) ([]model.Client, error) {
	clients, err := s.repo.FindByOIB(ctx, oib)
	if err != nil {
		return nil, fmt.Errorf("list clients for oib %d: %w", oib, err)
	}
	return clients, nil
}

// Get returns a single request.
func (s *ClientService) Get(ctx context.Context, id int64) (*model.Client, error) {
	return findClient(ctx, s.repo, id)
}

// Create stores a new REQUESTED request.
func (s *ClientService) Create(ctx context.Context, req *model.CreateClientRequest) (*model.Client, error) {
	c := req.ToClient()
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	logFrom(ctx, s.logger).Info().Int64("client_id", c.ID).Msg("client request created")
	return c, nil
}

// Replace overwrites the names and OIB of request req.ID, keeping its
// status. A missing id creates a new request with a server-assigned id.
func (s *ClientService) Replace(ctx context.Context, req *model.ReplaceClientRequest) (*model.Client, error) {
	s.process.mu.Lock()
	defer s.process.mu.Unlock()

	existing, err := s.repo.FindByID(ctx, req.ID)
	if errors.Is(err, repository.ErrClientNotFound) {
		create := &model.CreateClientRequest{ClientBody: req.ClientBody}
		c := create.ToClient()
		if err := s.repo.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
		logFrom(ctx, s.logger).Info().
			Int64("requested_id", req.ID).
			Int64("client_id", c.ID).
			Msg("replace target missing, created new client request")
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find client %d: %w", req.ID, err)
	}

	oldOIB := existing.OIB
	req.Apply(existing)
	return s.save(ctx, existing, oldOIB)
}

// Patch applies the present fields of req to request req.ID.
func (s *ClientService) Patch(ctx context.Context, req *model.PatchClientRequest) (*model.Client, error) {
	s.process.mu.Lock()
	defer s.process.mu.Unlock()

	c, err := findClient(ctx, s.repo, req.ID)
	if err != nil {
		return nil, err
	}

	oldOIB := c.OIB
	req.Apply(c)
	return s.save(ctx, c, oldOIB)
}

// save persists an edited request and carries its marker along. Callers hold the process lock.
func (s *ClientService) save(ctx context.Context, c *model.Client, oldOIB int64) (*model.Client, error) {
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update client %d: %w", c.ID, err)
	}

	demoted, err := s.process.syncMarker(ctx, c, oldOIB)
	if err != nil {
		return nil, err
	}
	if demoted {
		logFrom(ctx, s.logger).Warn().
			Int64("client_id", c.ID).
			Int64("oib", c.OIB).
			Msg("new OIB already has a running process, client request set inactive")
		if err := s.repo.Update(ctx, c); err != nil {
			return nil, fmt.Errorf("update client %d: %w", c.ID, err)
		}
	}
	return c, nil
}

// Delete removes request id and the marker it owns.
func (s *ClientService) Delete(ctx context.Context, id int64) (string, error) {
	s.process.mu.Lock()
	defer s.process.mu.Unlock()

	c, err := findClient(ctx, s.repo, id)
	if err != nil {
		return "", err
	}

	if err := s.process.releaseMarker(ctx, c); err != nil {
		return "", err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return "", errs.ClientNotFound(id)
		}
		return "", fmt.Errorf("delete client %d: %w", id, err)
	}

	c.Status = model.StatusInactive
	logFrom(ctx, s.logger).Info().Int64("client_id", id).Msg("client request deleted")
	return deletedMessage(c), nil
}

// DeleteByOIB removes every request for oib and the OIB's marker.
func (s *ClientService) DeleteByOIB(ctx context.Context, oib int64) (string, error) {
	s.process.mu.Lock()
	defer s.process.mu.Unlock()

	log := logFrom(ctx, s.logger)

	deleted, err := s.repo.DeleteByOIB(ctx, oib)
	if err != nil {
		log.Error().Err(err).Int64("oib", oib).Msg("failed to delete client requests")
		return "", errs.NewDomainError(errs.CodeDeleteFailed, "Client requests are not deleted. Internal Server Problem.")
	}
	if len(deleted) == 0 {
		return "", errs.NewDomainError(errs.CodeClientNotFound, fmt.Sprintf("No Client requests found for OIB: %d", oib))
	}

	if _, err := s.process.markers.Stop(oib); err != nil {
		log.Warn().Err(err).Int64("oib", oib).Msg("client requests deleted but marker removal failed")
	}

	entries := make([]string, 0, len(deleted))
	for i := range deleted {
		deleted[i].Status = model.StatusInactive
		entries = append(entries, deletedMessage(&deleted[i]))
	}

	log.Info().Int64("oib", oib).Int("deleted", len(deleted)).Msg("client requests deleted")
	return strings.Join(entries, "\n\n"), nil
}

func deletedMessage(c *model.Client) string {
	return fmt.Sprintf("Client request ID: %d is deleted.", c.ID) + c.Summary()
}
