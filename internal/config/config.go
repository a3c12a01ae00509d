// Package config loads the toolkit's runtime configuration from
// environment variables (and an optional .env file in development),
// matching ws/config.go's approach.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every tunable the core packages need: clock timeouts,
// queue/bus capacities, dispatcher pool sizes, broker addresses and
// reconnect timeouts, and HTTP parser limits.
type Config struct {
	// Subsystem clock (spec.md §3, §4.F)
	ClockTimeout       time.Duration `env:"NETCORE_CLOCK_TIMEOUT" envDefault:"100ms"`
	AwaitResponseTicks int           `env:"NETCORE_AWAIT_RESPONSE_TICKS" envDefault:"10"`

	// Fabric (§4.E)
	QueueCapacity int `env:"NETCORE_QUEUE_CAPACITY" envDefault:"1024"`

	// Task dispatchers (§4.H)
	DispatcherWorkers     int `env:"NETCORE_DISPATCHER_WORKERS" envDefault:"16"`
	DispatcherMaxOverflow int `env:"NETCORE_DISPATCHER_MAX_OVERFLOW" envDefault:"64"`

	// Broker (§4.K/L/M)
	BrokerClientAddr          string        `env:"NETCORE_BROKER_CLIENT_ADDR" envDefault:"localhost:9000"`
	BrokerListenAddr          string        `env:"NETCORE_BROKER_LISTEN_ADDR" envDefault:":9001"`
	BrokerServiceAddr         string        `env:"NETCORE_BROKER_SERVICE_ADDR" envDefault:":9002"`
	BrokerMaxClients          int           `env:"NETCORE_BROKER_MAX_CLIENTS" envDefault:"500"`
	BrokerAwaitingConnTimeout time.Duration `env:"NETCORE_BROKER_AWAITING_CONN_TIMEOUT" envDefault:"1s"`
	BrokerAcceptRatePerSec    float64       `env:"NETCORE_BROKER_ACCEPT_RATE_PER_SEC" envDefault:"200"`
	BrokerAcceptBurst         int           `env:"NETCORE_BROKER_ACCEPT_BURST" envDefault:"50"`

	// HTTP parser limits (§4.I)
	HTTPHeaderNameMaxLen  int `env:"NETCORE_HTTP_HEADER_NAME_MAX_LEN" envDefault:"256"`
	HTTPHeaderValueMaxLen int `env:"NETCORE_HTTP_HEADER_VALUE_MAX_LEN" envDefault:"8192"`
	HTTPHeaderCountMax    int `env:"NETCORE_HTTP_HEADER_COUNT_MAX" envDefault:"100"`

	// Resource guard (gopsutil-backed, see internal/resource)
	CPURejectThreshold float64       `env:"NETCORE_CPU_REJECT_THRESHOLD" envDefault:"75.0"`
	CPUPauseThreshold  float64       `env:"NETCORE_CPU_PAUSE_THRESHOLD" envDefault:"80.0"`
	ResourceSampleRate time.Duration `env:"NETCORE_RESOURCE_SAMPLE_RATE" envDefault:"1s"`

	// Metrics (§ambient)
	MetricsAddr string `env:"NETCORE_METRICS_ADDR" envDefault:":2112"`

	// Logging
	LogLevel  string `env:"NETCORE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"NETCORE_LOG_FORMAT" envDefault:"json"`

	Environment string `env:"NETCORE_ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from an optional .env file then the process
// environment (env vars win), validates it, and returns it.
//
// Priority: ENV vars > .env file > defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found (using environment variables only)")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.BrokerMaxClients < 1 {
		return fmt.Errorf("NETCORE_BROKER_MAX_CLIENTS must be > 0, got %d", c.BrokerMaxClients)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("NETCORE_QUEUE_CAPACITY must be > 0, got %d", c.QueueCapacity)
	}
	if c.DispatcherWorkers < 1 {
		return fmt.Errorf("NETCORE_DISPATCHER_WORKERS must be > 0, got %d", c.DispatcherWorkers)
	}
	if c.CPURejectThreshold < 0 || c.CPURejectThreshold > 100 {
		return fmt.Errorf("NETCORE_CPU_REJECT_THRESHOLD must be 0-100, got %.1f", c.CPURejectThreshold)
	}
	if c.CPUPauseThreshold < 0 || c.CPUPauseThreshold > 100 {
		return fmt.Errorf("NETCORE_CPU_PAUSE_THRESHOLD must be 0-100, got %.1f", c.CPUPauseThreshold)
	}
	if c.CPUPauseThreshold < c.CPURejectThreshold {
		return fmt.Errorf("NETCORE_CPU_PAUSE_THRESHOLD (%.1f) must be >= NETCORE_CPU_REJECT_THRESHOLD (%.1f)",
			c.CPUPauseThreshold, c.CPURejectThreshold)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("NETCORE_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("NETCORE_LOG_FORMAT must be one of: json, console (got: %s)", c.LogFormat)
	}
	return nil
}

// LogConfig logs the loaded configuration via structured logging.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("environment", c.Environment).
		Dur("clock_timeout", c.ClockTimeout).
		Int("queue_capacity", c.QueueCapacity).
		Int("dispatcher_workers", c.DispatcherWorkers).
		Int("dispatcher_max_overflow", c.DispatcherMaxOverflow).
		Str("broker_service_addr", c.BrokerServiceAddr).
		Int("broker_max_clients", c.BrokerMaxClients).
		Float64("cpu_reject_threshold", c.CPURejectThreshold).
		Float64("cpu_pause_threshold", c.CPUPauseThreshold).
		Str("metrics_addr", c.MetricsAddr).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("configuration loaded")
}
