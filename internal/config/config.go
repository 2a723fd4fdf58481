package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the taskmesh daemon
type Config struct {
	// Server configuration
	HTTPPort int    `env:"TASKMESH_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"TASKMESH_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis relay (optional mirror of bus messages)
	Redis RedisConfig

	// Backend configuration
	Backends BackendConfig

	// Registry configuration
	Registry RegistryConfig

	// Bus configuration
	Bus BusConfig

	// Coordinator configuration
	Coordinator CoordinatorConfig
}

// RedisConfig holds the optional Redis Streams relay configuration
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_RELAY_ENABLED" envDefault:"false"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// BackendConfig holds fallback-cascade backend configuration. Tiers are
// tried in order: primary, secondary, local.
type BackendConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY"`

	PrimaryModel   string `env:"BACKEND_PRIMARY_MODEL" envDefault:"claude-sonnet-4-20250514"`
	SecondaryModel string `env:"BACKEND_SECONDARY_MODEL" envDefault:"claude-3-5-haiku-20241022"`

	// Per-token rates used for cost accounting, one per tier
	PrimaryRate   float64 `env:"BACKEND_PRIMARY_RATE" envDefault:"0.000015"`
	SecondaryRate float64 `env:"BACKEND_SECONDARY_RATE" envDefault:"0.000004"`
	LocalRate     float64 `env:"BACKEND_LOCAL_RATE" envDefault:"0"`

	MaxTokens      int           `env:"BACKEND_MAX_TOKENS" envDefault:"4096"`
	Temperature    float64       `env:"BACKEND_TEMPERATURE" envDefault:"0.7"`
	RequestTimeout time.Duration `env:"BACKEND_REQUEST_TIMEOUT" envDefault:"120s"`
}

// RegistryConfig holds worker registry configuration
type RegistryConfig struct {
	HealthCheckInterval time.Duration `env:"REGISTRY_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// BusConfig holds message bus configuration
type BusConfig struct {
	HistoryLimit int `env:"BUS_HISTORY_LIMIT" envDefault:"1000"`
}

// CoordinatorConfig holds coordination controller configuration
type CoordinatorConfig struct {
	MaxFanout         int           `env:"COORDINATOR_MAX_FANOUT" envDefault:"5"`
	ParallelThreshold int           `env:"COORDINATOR_PARALLEL_THRESHOLD" envDefault:"4096"`
	TaskTimeout       time.Duration `env:"COORDINATOR_TASK_TIMEOUT" envDefault:"300s"`
	ShutdownTimeout   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate relay config
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when the relay is enabled")
	}

	// Validate backend config
	if c.Backends.APIKey == "" {
		return fmt.Errorf("anthropic API key is required")
	}
	if c.Backends.PrimaryRate < 0 || c.Backends.SecondaryRate < 0 || c.Backends.LocalRate < 0 {
		return fmt.Errorf("backend token rates must not be negative")
	}
	if c.Backends.MaxTokens < 1 {
		return fmt.Errorf("backend max tokens must be at least 1")
	}

	// Validate registry config
	if c.Registry.HealthCheckInterval < time.Second {
		return fmt.Errorf("health check interval must be at least 1s")
	}

	// Validate bus config
	if c.Bus.HistoryLimit < 1 {
		return fmt.Errorf("bus history limit must be at least 1")
	}

	// Validate coordinator config
	if c.Coordinator.MaxFanout < 1 {
		return fmt.Errorf("coordinator max fanout must be at least 1")
	}
	if c.Coordinator.ParallelThreshold < 1 {
		return fmt.Errorf("coordinator parallel threshold must be at least 1")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
