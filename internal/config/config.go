// Package config manages environment variables.
//
// It reads variables from the process environment (and from a `.env` file
// when one is present), maps them into structured Go types and validates
// that required values are present before the application starts.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide defaults for optional blocks (observability, process, jobs).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// EnvPrefix is the prefix every configuration variable carries.
//
// Nesting uses the "." delimiter, so CARDAPI_SERVER.PORT maps to
// Config.Server.Port.
const EnvPrefix = "CARDAPI_"

const (
	// StorePostgres keeps client records in PostgreSQL.
	StorePostgres = "postgres"
	// StoreMemory keeps client records in process memory. Local runs only.
	StoreMemory = "memory"
)

// Config is the root configuration object for the application.
//
// Database is a pointer because it is only required by the postgres store.
// Observability, Process and Jobs are optional; defaults are injected.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      *DatabaseConfig      `koanf:"database"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Process       *ProcessConfig       `koanf:"process"`
	Jobs          *JobsConfig          `koanf:"jobs"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`

	// Store selects the client repository backend.
	Store string `koanf:"store" validate:"omitempty,oneof=postgres memory"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are whole seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the allowed requests per second per client IP. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details. Address is "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig controls bearer-token authentication of mutating routes.
type AuthConfig struct {
	Enabled   bool   `koanf:"enabled"`
	SecretKey string `koanf:"secret_key" validate:"required_if=Enabled true"`
}

// IntegrationConfig stores third-party API settings.
//
// Operator notifications are sent only when both ResendAPIKey and NotifyEmail are set.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	NotifyEmail  string `koanf:"notify_email" validate:"omitempty,email"`
	NotifyFrom   string `koanf:"notify_from"`
}

// NotificationsEnabled reports whether process notifications can be delivered.
func (c IntegrationConfig) NotificationsEnabled() bool {
	return c.ResendAPIKey != "" && c.NotifyEmail != ""
}

// ProcessConfig controls the process marker directory.
type ProcessConfig struct {
	MarkerDir string `koanf:"marker_dir" validate:"required"`
}

// JobsConfig controls the background job server.
type JobsConfig struct {
	Enabled bool `koanf:"enabled"`

	// Concurrency is the number of asynq workers.
	Concurrency int `koanf:"concurrency" validate:"min=1"`

	// ReconcileSchedule is a standard 5-field cron spec for the marker reconciliation task.
	ReconcileSchedule string `koanf:"reconcile_schedule" validate:"required"`

	// ShutdownTimeout bounds how long in-flight tasks may run during shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Validate checks rules the struct tags cannot express.
func (j *JobsConfig) Validate() error {
	if _, err := cron.ParseStandard(j.ReconcileSchedule); err != nil {
		return fmt.Errorf("invalid jobs reconcile_schedule %q: %w", j.ReconcileSchedule, err)
	}
	return nil
}

// DefaultProcessConfig keeps markers in StartedCardMakingProcesses under the working directory.
func DefaultProcessConfig() *ProcessConfig {
	return &ProcessConfig{MarkerDir: "StartedCardMakingProcesses"}
}

// DefaultJobsConfig runs the reconciler every ten minutes.
func DefaultJobsConfig() *JobsConfig {
	return &JobsConfig{
		Enabled:           true,
		Concurrency:       5,
		ReconcileSchedule: "*/10 * * * *",
		ShutdownTimeout:   10 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it
// into Config, validates it, applies defaults, and returns the result.
//
// Behavior summary:
//   - Loads env vars with prefix CARDAPI_
//   - Converts env keys into koanf keys using "." nesting
//   - Unmarshals into Config and validates struct tags
//   - Requires the database block when the postgres store is selected
//   - Injects defaults for observability, process and jobs
//   - Runs the custom Validate() of each optional block
func LoadConfig() (*Config, error) {
	// "." is the key-path delimiter: "server.port" means Config.Server.Port.
	k := koanf.New(".")

	// Only variables carrying the prefix are read. The mapper strips the
	// prefix and lowercases, so CARDAPI_SERVER.PORT becomes "server.port".
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if mainConfig.Primary.Store == "" {
		mainConfig.Primary.Store = StorePostgres
	}
	if mainConfig.Process == nil {
		mainConfig.Process = DefaultProcessConfig()
	}
	if mainConfig.Jobs == nil {
		mainConfig.Jobs = DefaultJobsConfig()
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// The database block is only mandatory for the postgres store.
	if mainConfig.Primary.Store == StorePostgres {
		if mainConfig.Database == nil {
			return nil, fmt.Errorf("config validation failed: database block is required for the %s store", StorePostgres)
		}
		if err := validate.Struct(mainConfig.Database); err != nil {
			return nil, fmt.Errorf("database config validation failed: %w", err)
		}
	}

	if err := mainConfig.Jobs.Validate(); err != nil {
		return nil, err
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are forced so telemetry stays consistent.
	mainConfig.Observability.ServiceName = "cardapi"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
