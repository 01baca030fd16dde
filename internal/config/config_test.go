package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CARDAPI_PRIMARY.ENV", "local")
	t.Setenv("CARDAPI_PRIMARY.STORE", "memory")
	t.Setenv("CARDAPI_SERVER.PORT", "8080")
	t.Setenv("CARDAPI_SERVER.READ_TIMEOUT", "30")
	t.Setenv("CARDAPI_SERVER.WRITE_TIMEOUT", "30")
	t.Setenv("CARDAPI_SERVER.IDLE_TIMEOUT", "60")
	t.Setenv("CARDAPI_SERVER.CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	t.Setenv("CARDAPI_REDIS.ADDRESS", "localhost:6379")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Primary.Store != StoreMemory {
		t.Fatalf("expected memory store, got %q", cfg.Primary.Store)
	}
	if cfg.Process.MarkerDir != "StartedCardMakingProcesses" {
		t.Fatalf("unexpected marker dir %q", cfg.Process.MarkerDir)
	}
	if cfg.Jobs.ReconcileSchedule != "*/10 * * * *" {
		t.Fatalf("unexpected reconcile schedule %q", cfg.Jobs.ReconcileSchedule)
	}
	if cfg.Observability.ServiceName != "cardapi" || cfg.Observability.Environment != "local" {
		t.Fatalf("observability not forced: %+v", cfg.Observability)
	}
	if got := cfg.Observability.GetLogLevel(); got != "info" {
		t.Fatalf("expected default level info, got %q", got)
	}
}

func TestLoadConfigPostgresRequiresDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CARDAPI_PRIMARY.STORE", "postgres")

	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "database block is required") {
		t.Fatalf("expected missing database error, got %v", err)
	}
}

func TestLoadConfigRejectsBadSchedule(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CARDAPI_JOBS.ENABLED", "true")
	t.Setenv("CARDAPI_JOBS.CONCURRENCY", "2")
	t.Setenv("CARDAPI_JOBS.RECONCILE_SCHEDULE", "every now and then")

	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "reconcile_schedule") {
		t.Fatalf("expected schedule error, got %v", err)
	}
}

func TestLoadConfigAuthNeedsSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CARDAPI_AUTH.ENABLED", "true")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error for auth without secret key")
	}
}

func TestObservabilityValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ObservabilityConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *ObservabilityConfig) {}},
		{name: "bad level", mutate: func(c *ObservabilityConfig) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "negative threshold", mutate: func(c *ObservabilityConfig) { c.Logging.SlowQueryThreshold = -time.Second }, wantErr: true},
		{name: "missing service", mutate: func(c *ObservabilityConfig) { c.ServiceName = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultObservabilityConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthCheckEnabled(t *testing.T) {
	c := DefaultObservabilityConfig()
	if !c.HealthCheckEnabled("markers") {
		t.Fatal("markers check should be enabled by default")
	}
	if c.HealthCheckEnabled("kafka") {
		t.Fatal("unknown check should not be enabled")
	}
	c.HealthChecks.Enabled = false
	if c.HealthCheckEnabled("database") {
		t.Fatal("checks must be off when disabled")
	}
}
