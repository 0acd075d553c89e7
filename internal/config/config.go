// Package config loads service configuration from an optional YAML file
// plus environment variable overrides. YT_API_KEYS, REDIS_URL, BROKER_URL,
// REDIS_MAX_CONNECTIONS and JWT_SECRET are environment-only, since they carry secrets
// or deployment-specific endpoints; everything else (pool sizes, timeouts,
// listen address) is YAML-configurable with sane defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/ytresolver/internal/apierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
	KeyPool   KeyPoolConfig   `yaml:"key_pool"`
	Worker    WorkerConfig    `yaml:"worker"`

	// Environment-only.
	YTAPIKeys          []string
	RedisURL           string
	BrokerURL          string
	RedisMaxConnections int
	JWTSecret          string
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateLimitConfig configures the per-tenant throttle.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Period      time.Duration `yaml:"period"`
}

// RetryConfig configures the retry/execute pipeline.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
}

// KeyPoolConfig configures the key rotator.
type KeyPoolConfig struct {
	CooldownDuration time.Duration `yaml:"cooldown_duration"`
}

// WorkerConfig configures the worker pool: SoftTimeout bounds a single
// Job's resolution before it's marked failed; HardTimeout is a longer
// backstop for deployments that enforce it at the process level.
type WorkerConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	SoftTimeout  time.Duration `yaml:"soft_timeout"`
	HardTimeout  time.Duration `yaml:"hard_timeout"`
}

// Default returns the baseline value for every tunable.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		RateLimit: RateLimitConfig{
			MaxRequests: 5,
			Period:      1 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:     5,
			InitialBackoff: 1 * time.Second,
			BackoffFactor:  2.0,
		},
		KeyPool: KeyPoolConfig{CooldownDuration: 60 * time.Second},
		Worker: WorkerConfig{
			Concurrency: 8,
			SoftTimeout: 60 * time.Second,
			HardTimeout: 1200 * time.Second,
		},
		RedisURL:            "localhost:6379/0",
		BrokerURL:           "localhost:6379/1",
		RedisMaxConnections: 50,
	}
}

// Load reads configPath (if non-empty and present) over the defaults, then
// applies environment variable overrides, then validates.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	keysStr := os.Getenv("YT_API_KEYS")
	keys := splitNonEmpty(keysStr)
	if len(keys) == 0 {
		return nil, apierr.New(apierr.Config, "YT_API_KEYS environment variable is not set or empty")
	}
	cfg.YTAPIKeys = keys

	cfg.RedisURL = envOr("REDIS_URL", cfg.RedisURL)
	cfg.BrokerURL = envOr("BROKER_URL", cfg.BrokerURL)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	if raw := os.Getenv("REDIS_MAX_CONNECTIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apierr.Wrap(apierr.Config, "REDIS_MAX_CONNECTIONS must be an integer", err)
		}
		cfg.RedisMaxConnections = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.YTAPIKeys) == 0 {
		return apierr.New(apierr.Config, "no valid API keys found in YT_API_KEYS")
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Period <= 0 {
		return apierr.New(apierr.Config, "rate_limit.max_requests and rate_limit.period must be positive")
	}
	if c.Retry.MaxRetries <= 0 {
		return apierr.New(apierr.Config, "retry.max_retries must be positive")
	}
	return nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
