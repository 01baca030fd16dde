// Package server composes the application's shared dependencies and owns
// their lifecycle:
//   - configuration and logging (with optional New Relic)
//   - the PostgreSQL pool (postgres store only)
//   - the Redis client and the Asynq job service
//   - the process marker store
//   - the HTTP server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/deppfellow/cardapi/internal/database"
	"github.com/deppfellow/cardapi/internal/lib/job"
	"github.com/deppfellow/cardapi/internal/lib/marker"
	loggerPkg "github.com/deppfellow/cardapi/internal/logger"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const redisPingTimeout = 5 * time.Second

// Server is the application container. It is not the HTTP server itself.
//
// DB is nil for the memory store. Job is nil when background jobs are disabled.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService
	DB            *database.Database
	Redis         *redis.Client
	Markers       *marker.Store
	Job           *job.JobService

	httpServer *http.Server
}

// New initializes core dependencies. Background jobs are created here but
// only started by StartJobs, after the services they call are wired.
//
// Redis being unreachable is logged and tolerated; the database is not.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	s := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		Markers:       marker.NewStore(afero.NewOsFs(), cfg.Process.MarkerDir),
	}

	if cfg.Primary.Store != config.StoreMemory {
		db, err := database.New(cfg, logger, loggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.DB = db
	}

	s.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	if loggerService != nil && loggerService.GetApplication() != nil {
		s.Redis.AddHook(nrredis.NewHook(s.Redis.Options()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis, continuing without Redis")
	}

	if err := s.Markers.Writable(); err != nil {
		logger.Warn().Err(err).Str("dir", cfg.Process.MarkerDir).Msg("process marker directory is not writable")
	}

	if cfg.Jobs != nil && cfg.Jobs.Enabled {
		s.Job = job.NewJobService(logger, cfg)
		s.Job.InitHandlers(cfg, logger)
	}

	return s, nil
}

// StartJobs starts the job workers and scheduler. No-op when jobs are disabled.
func (s *Server) StartJobs() error {
	if s.Job == nil {
		return nil
	}
	return s.Job.Start()
}

// SetupHTTPServer configures the net/http server around handler.
// Config timeouts are whole seconds.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Str("store", s.Config.Primary.Store).
		Str("marker_dir", s.Markers.Dir()).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, then background jobs, then closes
// connections. Every step runs; errors are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	if s.LoggerService != nil {
		s.LoggerService.Shutdown()
	}

	return errors.Join(errs...)
}
