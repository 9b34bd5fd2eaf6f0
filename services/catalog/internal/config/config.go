package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/bookcatalog/pkg/config"
)

// Storage backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort    int      `env:"CATALOG_HTTP_PORT" envDefault:"8001"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Storage
	StorageBackend       string `env:"STORAGE_BACKEND" envDefault:"mongo"`
	MongoURI             string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase        string `env:"MONGO_DATABASE" envDefault:"bookcatalog"`
	MongoMaxPoolSize     uint64 `env:"MONGO_MAX_POOL_SIZE" envDefault:"50"`
	MongoConnectTimeoutS int    `env:"MONGO_CONNECT_TIMEOUT_SECONDS" envDefault:"10"`
	SlowQueryThresholdMS int    `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Redis is optional; empty disables it.
	RedisAddr string `env:"REDIS_ADDR"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka is optional; no brokers disables publishing and the import
	// consumer.
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"catalog-service"`

	// Review mutation rate limit per user
	ReviewRateLimit         int `env:"REVIEW_RATE_LIMIT" envDefault:"30"`
	ReviewRateWindowSeconds int `env:"REVIEW_RATE_WINDOW_SECONDS" envDefault:"60"`

	GraphQLMaxDepth int `env:"GRAPHQL_MAX_DEPTH" envDefault:"10"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendMongo, BackendMemory, c.StorageBackend)
	}
	if c.ReviewRateLimit < 1 {
		return fmt.Errorf("REVIEW_RATE_LIMIT must be positive, got %d", c.ReviewRateLimit)
	}
	if c.ReviewRateWindowSeconds < 1 {
		return fmt.Errorf("REVIEW_RATE_WINDOW_SECONDS must be positive, got %d", c.ReviewRateWindowSeconds)
	}
	if c.GraphQLMaxDepth < 1 {
		return fmt.Errorf("GRAPHQL_MAX_DEPTH must be positive, got %d", c.GraphQLMaxDepth)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// ReviewRateWindow is the rate limit window as a duration.
func (c *Config) ReviewRateWindow() time.Duration {
	return time.Duration(c.ReviewRateWindowSeconds) * time.Second
}

// MongoConnectTimeout is the connect timeout as a duration.
func (c *Config) MongoConnectTimeout() time.Duration {
	return time.Duration(c.MongoConnectTimeoutS) * time.Second
}

// SlowQueryThreshold is the Mongo slow command threshold as a duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMS) * time.Millisecond
}

// KafkaEnabled reports whether brokers are configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
