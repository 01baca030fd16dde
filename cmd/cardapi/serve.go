package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/deppfellow/cardapi/internal/database"
	"github.com/deppfellow/cardapi/internal/handler"
	"github.com/deppfellow/cardapi/internal/logger"
	"github.com/deppfellow/cardapi/internal/repository"
	"github.com/deppfellow/cardapi/internal/router"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/deppfellow/cardapi/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving (postgres store only)")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	if migrate && cfg.Primary.Store == config.StorePostgres {
		if err := database.Migrate(ctx, &log, cfg.Database, -1); err != nil {
			loggerService.Shutdown()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		loggerService.Shutdown()
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	repos, err := repository.NewRepositories(srv)
	if err != nil {
		return errors.Join(err, srv.Shutdown(context.Background()))
	}

	services, err := service.NewService(srv, repos)
	if err != nil {
		return errors.Join(err, srv.Shutdown(context.Background()))
	}

	if err := srv.StartJobs(); err != nil {
		return errors.Join(fmt.Errorf("failed to start jobs: %w", err), srv.Shutdown(context.Background()))
	}

	srv.SetupHTTPServer(router.NewRouter(srv, handler.NewHandlers(srv, services)))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(fmt.Errorf("server stopped: %w", err), srv.Shutdown(context.Background()))
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}
