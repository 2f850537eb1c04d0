package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/fungus-mycelium/fungus-admin/internal/logs"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/cache"
)

// Config holds runtime configuration for the dashboard and the worker.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIURL             string        `envconfig:"FUNGUS_API_URL" default:"http://localhost:4000/api"`
	APITimeout         time.Duration `envconfig:"FUNGUS_API_TIMEOUT" default:"10s"`
	APIBreakerFailures uint32        `envconfig:"FUNGUS_API_BREAKER_FAILURES" default:"5"`
	APIBreakerCooldown time.Duration `envconfig:"FUNGUS_API_BREAKER_COOLDOWN" default:"30s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	ListIdleTTL   time.Duration `envconfig:"LIST_IDLE_TTL" default:"30m"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	CleanupSchedule   string `envconfig:"CLEANUP_SCHEDULE" default:"0 3 * * *"`
	CleanupDays       int    `envconfig:"CLEANUP_DAYS" default:"90"`
	ServiceToken      string `envconfig:"SERVICE_TOKEN"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		return nil, errors.New("api url must be provided")
	}
	if cfg.CleanupDays < 1 || cfg.CleanupDays > logs.MaxCleanupDays {
		return nil, fmt.Errorf("cleanup days must be between 1 and %d", logs.MaxCleanupDays)
	}
	return &cfg, nil
}

// Redis returns the connection options shared by sessions and the queue.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// WorkerEnabled reports whether scheduled cleanup can authenticate.
func (c *Config) WorkerEnabled() bool {
	return c != nil && strings.TrimSpace(c.ServiceToken) != ""
}
