package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/cardapi/internal/middleware"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/labstack/echo/v4"
)

const defaultHealthTimeout = 5 * time.Second

// HealthHandler serves /status for load balancers and uptime monitors.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(s)}
}

type dependencyCheck struct {
	name string
	run  func(ctx context.Context) error
}

// checks returns the checks enabled in observability.health_checks.
// Dependencies the process runs without (no database for the memory store)
// are left out.
func (h *HealthHandler) checks() []dependencyCheck {
	obs := h.server.Config.Observability
	enabled := func(name string) bool {
		return obs == nil || obs.HealthCheckEnabled(name)
	}

	var checks []dependencyCheck
	if enabled("database") && h.server.DB != nil {
		checks = append(checks, dependencyCheck{"database", func(ctx context.Context) error {
			return h.server.DB.Pool.Ping(ctx)
		}})
	}
	if enabled("redis") && h.server.Redis != nil {
		checks = append(checks, dependencyCheck{"redis", func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		}})
	}
	if enabled("markers") && h.server.Markers != nil {
		checks = append(checks, dependencyCheck{"markers", func(context.Context) error {
			return h.server.Markers.Writable()
		}})
	}
	return checks
}

// CheckHealth answers 200 when every enabled dependency check passes and 503 otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().Str("operation", "health_check").Logger()

	timeout := defaultHealthTimeout
	if obs := h.server.Config.Observability; obs != nil && obs.HealthChecks.Timeout > 0 {
		timeout = obs.HealthChecks.Timeout
	}

	results := make(map[string]any)
	healthy := true

	for _, check := range h.checks() {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		checkStart := time.Now()
		err := check.run(ctx)
		cancel()

		result := map[string]any{
			"status":        "healthy",
			"response_time": time.Since(checkStart).String(),
		}
		if err != nil {
			healthy = false
			result["status"] = "unhealthy"
			result["error"] = err.Error()

			logger.Error().Err(err).Str("check", check.name).Dur("response_time", time.Since(checkStart)).
				Msg("health check failed")
			h.recordHealthError(check.name, time.Since(checkStart), err)
		}
		results[check.name] = result
	}

	response := map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      results,
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	logger.Debug().Dur("total_duration", time.Since(start)).Bool("healthy", healthy).Msg("health check finished")

	if err := c.JSON(status, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

func (h *HealthHandler) recordHealthError(check string, elapsed time.Duration, err error) {
	if h.server.LoggerService == nil || h.server.LoggerService.GetApplication() == nil {
		return
	}
	h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", map[string]any{
		"check_type":       check,
		"operation":        "health_check",
		"response_time_ms": elapsed.Milliseconds(),
		"error_message":    err.Error(),
	})
}
