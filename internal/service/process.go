package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/deppfellow/cardapi/internal/lib/job"
	"github.com/deppfellow/cardapi/internal/lib/marker"
	"github.com/deppfellow/cardapi/internal/model"
	"github.com/deppfellow/cardapi/internal/repository"
	"github.com/rs/zerolog"
)

// StopAllMessage answers a stop-all request.
const StopAllMessage = "All card making processes are stopped"

// ProcessNotifier is told about process starts and stops.
type ProcessNotifier interface {
	NotifyProcessEvent(ctx context.Context, p job.ProcessNotifyPayload) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyProcessEvent(context.Context, job.ProcessNotifyPayload) error { return nil }

// ProcessService starts and stops card making processes.
//
// A process is a marker file for the client's OIB plus the STARTED status on
// the record. mu serializes every operation that reads a marker and then
// writes one, including the marker sync done by ClientService.
type ProcessService struct {
	repo     repository.ClientRepository
	markers  *marker.Store
	notifier ProcessNotifier
	logger   *zerolog.Logger

	mu sync.Mutex
}

// NewProcessService creates a ProcessService.
func NewProcessService(repo repository.ClientRepository, markers *marker.Store, notifier ProcessNotifier, logger *zerolog.Logger) *ProcessService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ProcessService{
		repo:     repo,
		markers:  markers,
		notifier: notifier,
		logger:   logger,
	}
}

// Start starts the process of client request id.
//
// A marker for the same OIB owned by another request blocks the start unless
// that request no longer exists or is INACTIVE. A corrupted marker is
// overwritten.
func (s *ProcessService) Start(ctx context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := findClient(ctx, s.repo, id)
	if err != nil {
		return "", err
	}

	if c.Status == model.StatusStarted {
		if _, err := s.markers.Start(*c); err != nil {
			return "", fmt.Errorf("refresh marker for client %d: %w", id, err)
		}
		return fmt.Sprintf("Process already started for Client request ID: %d.", id) + c.Summary(), nil
	}

	rec, err := s.lookup(ctx, c.OIB)
	if err != nil {
		return "", err
	}

	if rec != nil && rec.ID != c.ID {
		owner, err := s.repo.FindByID(ctx, rec.ID)
		switch {
		case errors.Is(err, repository.ErrClientNotFound):
			logFrom(ctx, s.logger).Info().Int64("stale_owner", rec.ID).Int64("client_id", id).Msg("taking over marker of deleted client request")
		case err != nil:
			return "", fmt.Errorf("find marker owner %d: %w", rec.ID, err)
		case owner.Status != model.StatusInactive:
			return fmt.Sprintf("Process already started for different Client request ID: %d.", owner.ID) + owner.Summary(), nil
		}
	}

	c.Status = model.StatusStarted
	if _, err := s.markers.Start(*c); err != nil {
		return "", fmt.Errorf("write marker for client %d: %w", id, err)
	}
	if err := s.repo.Update(ctx, c); err != nil {
		if _, stopErr := s.markers.Stop(c.OIB); stopErr != nil {
			logFrom(ctx, s.logger).Error().Err(stopErr).Int64("oib", c.OIB).Msg("failed to roll back marker")
		}
		return "", fmt.Errorf("save started client %d: %w", id, err)
	}

	s.notify(ctx, job.EventStarted, c)
	return fmt.Sprintf("Process started for Client request ID: %d.", id) + c.Summary(), nil
}

// Stop stops the process of client request id. Only the request that owns
// the OIB's marker can stop it.
func (s *ProcessService) Stop(ctx context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := findClient(ctx, s.repo, id)
	if err != nil {
		return "", err
	}

	rec, err := s.lookup(ctx, c.OIB)
	if err != nil {
		return "", err
	}
	if rec == nil || rec.ID != c.ID {
		return fmt.Sprintf("Client request ID: %d not yet started.", id), nil
	}

	if _, err := s.markers.Stop(c.OIB); err != nil {
		return "", fmt.Errorf("remove marker for client %d: %w", id, err)
	}

	c.Status = model.StatusInactive
	if err := s.repo.Update(ctx, c); err != nil {
		return "", fmt.Errorf("save stopped client %d: %w", id, err)
	}

	s.notify(ctx, job.EventStopped, c)
	return fmt.Sprintf("Process stopped for Client request ID: %d.", id) + c.Summary(), nil
}

// StopAll removes every marker and marks the STARTED requests named in them
// INACTIVE. Record updates are best effort.
func (s *ProcessService) StopAll(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logFrom(ctx, s.logger)

	records, removeErr := s.markers.StopAll()
	for _, rec := range records {
		c, err := s.repo.FindByID(ctx, rec.ID)
		if err != nil {
			if !errors.Is(err, repository.ErrClientNotFound) {
				log.Warn().Err(err).Int64("client_id", rec.ID).Msg("could not load client of stopped marker")
			}
			continue
		}
		if c.Status != model.StatusStarted || c.OIB != rec.OIB {
			continue
		}

		c.Status = model.StatusInactive
		if err := s.repo.Update(ctx, c); err != nil {
			log.Warn().Err(err).Int64("client_id", c.ID).Msg("could not mark client inactive")
			continue
		}
		s.notify(ctx, job.EventStopped, c)
	}

	if removeErr != nil {
		return "", fmt.Errorf("stop all processes: %w", removeErr)
	}

	log.Info().Int("stopped", len(records)).Msg("stopped all card making processes")
	return StopAllMessage, nil
}

// ReconcileMarkers removes corrupted markers and markers whose request is
// gone, not STARTED, or now has a different OIB. It returns how many it removed.
func (s *ProcessService) ReconcileMarkers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, corrupted, err := s.markers.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errList []error
	remove := func(name string) {
		if err := s.markers.Remove(name); err != nil {
			errList = append(errList, err)
			return
		}
		removed++
	}

	for _, name := range corrupted {
		remove(name)
	}

	for _, rec := range records {
		c, err := s.repo.FindByID(ctx, rec.ID)
		switch {
		case errors.Is(err, repository.ErrClientNotFound):
			remove(rec.File)
		case err != nil:
			errList = append(errList, fmt.Errorf("find client %d: %w", rec.ID, err))
		case c.Status != model.StatusStarted || c.OIB != rec.OIB:
			remove(rec.File)
		}
	}

	return removed, errors.Join(errList...)
}

// syncMarker keeps the marker snapshot of c current after an edit.
// oldOIB is the OIB stored before the edit. Callers hold s.mu.
//
// It reports whether c was demoted to INACTIVE because its new OIB is held
// by another request's process.
func (s *ProcessService) syncMarker(ctx context.Context, c *model.Client, oldOIB int64) (bool, error) {
	if c.Status == model.StatusRequested {
		return false, nil
	}

	rec, err := s.lookup(ctx, oldOIB)
	if err != nil {
		return false, err
	}
	if rec == nil || rec.ID != c.ID {
		return false, nil
	}

	if oldOIB != c.OIB {
		target, err := s.lookup(ctx, c.OIB)
		if err != nil {
			return false, err
		}
		if _, err := s.markers.Stop(oldOIB); err != nil {
			return false, fmt.Errorf("remove marker for oib %d: %w", oldOIB, err)
		}
		if target != nil && target.ID != c.ID {
			c.Status = model.StatusInactive
			return true, nil
		}
	}

	if _, err := s.markers.Start(*c); err != nil {
		return false, fmt.Errorf("rewrite marker for client %d: %w", c.ID, err)
	}
	return false, nil
}

// releaseMarker removes the marker of c's OIB when c owns it. Callers hold s.mu.
func (s *ProcessService) releaseMarker(ctx context.Context, c *model.Client) error {
	rec, err := s.lookup(ctx, c.OIB)
	if err != nil || rec == nil || rec.ID != c.ID {
		return err
	}
	if _, err := s.markers.Stop(c.OIB); err != nil {
		return fmt.Errorf("remove marker for client %d: %w", c.ID, err)
	}
	return nil
}

// lookup treats a corrupted marker as absent so it gets overwritten.
func (s *ProcessService) lookup(ctx context.Context, oib int64) (*marker.Record, error) {
	rec, err := s.markers.Lookup(oib)
	if errors.Is(err, marker.ErrCorrupted) {
		logFrom(ctx, s.logger).Warn().Err(err).Int64("oib", oib).Msg("ignoring corrupted process marker")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup marker for oib %d: %w", oib, err)
	}
	return rec, nil
}

func (s *ProcessService) notify(ctx context.Context, event string, c *model.Client) {
	err := s.notifier.NotifyProcessEvent(ctx, job.ProcessNotifyPayload{
		Event:     event,
		ClientID:  c.ID,
		OIB:       c.OIB,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Status:    string(c.Status),
	})
	if err != nil {
		logFrom(ctx, s.logger).Warn().Err(err).Int64("client_id", c.ID).Str("event", event).Msg("failed to enqueue process notification")
	}
}

// findClient maps a missing record to the plain-text not found error.
func findClient(ctx context.Context, repo repository.ClientRepository, id int64) (*model.Client, error) {
	c, err := repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrClientNotFound) {
		return nil, errs.ClientNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find client %d: %w", id, err)
	}
	return c, nil
}

// logFrom prefers the request-scoped logger stored in ctx.
func logFrom(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}
