// Package job runs background work on Asynq, a Redis-backed task queue.
//
// Two task types exist: operator notifications for process start/stop,
// and a scheduled reconciliation that removes stale process markers.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/deppfellow/cardapi/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// JobService holds the Asynq client (enqueue), server (workers) and
// scheduler (periodic tasks).
type JobService struct {
	Client *asynq.Client

	server    *asynq.Server
	scheduler *asynq.Scheduler
	cfg       *config.JobsConfig
	logger    *zerolog.Logger

	mailer     Mailer
	notifyTo   string
	reconciler MarkerReconciler
}

// NewJobService creates a JobService using Redis from cfg. Nothing runs until Start.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	jobsCfg := cfg.Jobs
	if jobsCfg == nil {
		jobsCfg = config.DefaultJobsConfig()
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: jobsCfg.Concurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		ShutdownTimeout: jobsCfg.ShutdownTimeout,
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	return &JobService{
		Client:    asynq.NewClient(redisOpt),
		server:    server,
		scheduler: scheduler,
		cfg:       jobsCfg,
		logger:    logger,
	}
}

// InitHandlers prepares handler dependencies. The mailer is only built
// when notifications are fully configured.
func (j *JobService) InitHandlers(cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Integration.NotificationsEnabled() {
		logger.Info().Msg("process notifications disabled")
		return
	}
	j.mailer = email.NewClient(&cfg.Integration, logger)
	j.notifyTo = cfg.Integration.NotifyEmail
}

// SetReconciler registers the marker reconciler. Call before Start.
func (j *JobService) SetReconciler(r MarkerReconciler) {
	j.reconciler = r
}

// Start registers handlers, starts the workers and schedules reconciliation.
// Both asynq.Server.Start and asynq.Scheduler.Start return immediately.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskProcessNotify, j.handleProcessNotifyTask)
	mux.HandleFunc(TaskMarkerReconcile, j.handleMarkerReconcileTask)

	j.logger.Info().Int("concurrency", j.cfg.Concurrency).Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start job server: %w", err)
	}

	if j.reconciler != nil {
		entryID, err := j.scheduler.Register(j.cfg.ReconcileSchedule, NewMarkerReconcileTask())
		if err != nil {
			return fmt.Errorf("failed to schedule marker reconciliation: %w", err)
		}
		if err := j.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start job scheduler: %w", err)
		}
		j.logger.Info().
			Str("entry_id", entryID).
			Str("schedule", j.cfg.ReconcileSchedule).
			Msg("Scheduled marker reconciliation")
	}

	return nil
}

// NotifyProcessEvent enqueues a notification. It is a no-op when
// notifications are disabled.
func (j *JobService) NotifyProcessEvent(ctx context.Context, p ProcessNotifyPayload) error {
	if j.mailer == nil {
		return nil
	}

	task, err := NewProcessNotifyTask(p)
	if err != nil {
		return err
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue process notification: %w", err)
	}

	j.logger.Debug().Str("task_id", info.ID).Str("event", p.Event).Msg("enqueued process notification")
	return nil
}

// Stop shuts down the scheduler and workers, then closes the client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	if j.reconciler != nil {
		j.scheduler.Shutdown()
	}
	j.server.Shutdown()
	if err := j.Client.Close(); err != nil {
		j.logger.Warn().Err(err).Msg("failed to close job client")
	}
}
