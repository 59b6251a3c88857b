// Package config loads the immutable process configuration from the
// environment. Configuration is constructed once at startup and never
// mutated afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	StoreMemory   = "memory"
	StoreDatabase = "database"
	StoreRedis    = "redis"
)

type Config struct {
	ServiceName string `validate:"required"`
	Version     string `validate:"required"`
	Environment string `validate:"required,oneof=development staging production test"`
	HTTPAddr    string `validate:"required"`

	Database  Database
	EPO       EPO
	USPTO     USPTO
	Cache     Cache
	RateLimit RateLimit
	Redis     Redis
	Telemetry Telemetry
	Log       Log

	SeedDevKeys bool
}

type Database struct {
	URL             string `validate:"required"`
	MaxOpenConns    int    `validate:"min=1"`
	MaxIdleConns    int    `validate:"min=0"`
	ConnMaxLifetime time.Duration
}

type EPO struct {
	ConsumerKey    string
	ConsumerSecret string
	BaseURL        string `validate:"required,url"`
	RequestTimeout time.Duration
	TokenTTL       time.Duration
	RatePerMinute  int `validate:"min=0"`
}

type USPTO struct {
	APIKey         string
	BaseURL        string `validate:"required,url"`
	RequestTimeout time.Duration
	RatePerMinute  int `validate:"min=0"`
}

type Cache struct {
	TTL             time.Duration `validate:"gt=0"`
	RefreshEnabled  bool
	RefreshTopN     int `validate:"min=1"`
	RefreshInterval time.Duration
}

type RateLimit struct {
	Store   string `validate:"oneof=memory database redis"`
	Free    int64  `validate:"min=0"`
	Starter int64  `validate:"min=0"`
	Pro     int64  `validate:"min=0"`
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Telemetry struct {
	TracingEnabled   bool
	ExporterEndpoint string
	ExporterProtocol string  `validate:"oneof=grpc http"`
	SamplingRatio    float64 `validate:"min=0,max=1"`
}

type Log struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// Load reads configuration from the environment, applies defaults and
// validates the result.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: envString("SERVICE_NAME", "patentapi"),
		Version:     envString("SERVICE_VERSION", "1.0.0"),
		Environment: envString("ENVIRONMENT", "development"),
		HTTPAddr:    envString("HTTP_ADDR", ":8080"),
		Database: Database{
			URL:             envString("DATABASE_URL", ""),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		EPO: EPO{
			ConsumerKey:    envString("EPO_CONSUMER_KEY", ""),
			ConsumerSecret: envString("EPO_CONSUMER_SECRET", ""),
			BaseURL:        envString("EPO_BASE_URL", "https://ops.epo.org/3.2"),
			RequestTimeout: envDuration("EPO_REQUEST_TIMEOUT", 30*time.Second),
			TokenTTL:       envDuration("EPO_TOKEN_TTL", 15*time.Minute),
			RatePerMinute:  envInt("EPO_RATE_PER_MINUTE", 30),
		},
		USPTO: USPTO{
			APIKey:         envString("USPTO_API_KEY", ""),
			BaseURL:        envString("USPTO_BASE_URL", "https://developer.uspto.gov/ds-api"),
			RequestTimeout: envDuration("USPTO_REQUEST_TIMEOUT", 30*time.Second),
			RatePerMinute:  envInt("USPTO_RATE_PER_MINUTE", 30),
		},
		Cache: Cache{
			TTL:             envDuration("CACHE_TTL", 30*24*time.Hour),
			RefreshEnabled:  envBool("CACHE_REFRESH_ENABLED", false),
			RefreshTopN:     envInt("CACHE_REFRESH_TOP_N", 100),
			RefreshInterval: envDuration("CACHE_REFRESH_INTERVAL", 6*time.Hour),
		},
		RateLimit: RateLimit{
			Store:   envString("RATE_LIMIT_STORE", StoreMemory),
			Free:    envInt64("RATE_LIMIT_FREE", 20),
			Starter: envInt64("RATE_LIMIT_STARTER", 1000),
			Pro:     envInt64("RATE_LIMIT_PRO", 10000),
		},
		Redis: Redis{
			Addr:     envString("REDIS_ADDR", "localhost:6379"),
			Password: envString("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Telemetry: Telemetry{
			TracingEnabled:   envBool("TRACING_ENABLED", false),
			ExporterEndpoint: envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ExporterProtocol: envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    envFloat("TRACE_SAMPLING_RATIO", 0.1),
		},
		Log: Log{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		SeedDevKeys: envBool("SEED_DEV_KEYS", false),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural constraints with the shared validator.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
