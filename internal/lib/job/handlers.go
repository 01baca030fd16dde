package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deppfellow/cardapi/internal/lib/email"
	"github.com/hibiken/asynq"
)

// Mailer delivers process notifications.
type Mailer interface {
	SendProcessNotification(to string, ev email.ProcessEvent) error
}

// MarkerReconciler removes markers that no longer belong to a started request.
// It returns the number of markers removed.
type MarkerReconciler interface {
	ReconcileMarkers(ctx context.Context) (int, error)
}

func (j *JobService) handleProcessNotifyTask(ctx context.Context, t *asynq.Task) error {
	var p ProcessNotifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// Malformed payloads never succeed on retry.
		return fmt.Errorf("failed to unmarshal process notify payload: %v: %w", err, asynq.SkipRetry)
	}

	if j.mailer == nil {
		j.logger.Debug().Int64("client_id", p.ClientID).Msg("notifications disabled, dropping process event")
		return nil
	}

	log := j.logger.With().
		Str("type", TaskProcessNotify).
		Str("event", p.Event).
		Int64("client_id", p.ClientID).
		Logger()

	log.Info().Msg("Processing process notification task")

	err := j.mailer.SendProcessNotification(j.notifyTo, email.ProcessEvent{
		Event:     p.Event,
		ClientID:  p.ClientID,
		OIB:       p.OIB,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Status:    p.Status,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to send process notification")
		return err
	}

	log.Info().Msg("Successfully sent process notification")
	return nil
}

func (j *JobService) handleMarkerReconcileTask(ctx context.Context, _ *asynq.Task) error {
	if j.reconciler == nil {
		return nil
	}

	removed, err := j.reconciler.ReconcileMarkers(ctx)
	if err != nil {
		j.logger.Error().Err(err).Int("removed", removed).Msg("Marker reconciliation failed")
		return err
	}

	if removed > 0 {
		j.logger.Info().Int("removed", removed).Msg("Removed stale process markers")
	}
	return nil
}
