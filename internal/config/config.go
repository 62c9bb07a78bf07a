package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/sbilibin2017/gw-users/internal/password"
)

// Config holds every setting of the service. It is built once in main
// and handed to the components that need it.
type Config struct {
	// Application
	AppHost     string `env:"APP_HOST" envDefault:"localhost"`
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
	ProjectName string `env:"PROJECT_NAME" envDefault:"Backend API"`
	APIV1Prefix string `env:"API_V1_PREFIX" envDefault:"/api/v1"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"static"`

	// PostgreSQL
	DatabaseURL    string `env:"DATABASE_URL"`
	PGHost         string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PGPort         int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PGUser         string `env:"POSTGRES_USER" envDefault:"postgres"`
	PGPassword     string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PGDB           string `env:"POSTGRES_DB" envDefault:"postgres"`
	PGMaxOpenConns int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"16"`
	PGMaxIdleConns int    `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"8"`

	// CORS
	CORSOrigins     []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	CORSMethods     []string `env:"CORS_METHODS" envSeparator:"," envDefault:"*"`
	CORSHeaders     []string `env:"CORS_HEADERS" envSeparator:"," envDefault:"*"`
	CORSCredentials bool     `env:"CORS_CREDENTIALS" envDefault:"true"`

	// Rate limiting, counters are kept in Redis when RedisHost is set
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	RedisHost          string `env:"REDIS_HOST"`
	RedisPort          int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	RedisPassword      string `env:"REDIS_PASSWORD"`
	RedisPoolSize      int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns  int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`

	// Kafka user events, disabled when no brokers are given
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaUserEventsTopic string   `env:"KAFKA_USER_EVENTS_TOPIC" envDefault:"user-events"`

	// gRPC health server, disabled when empty
	GRPCPort string `env:"GRPC_PORT"`

	PasswordHashAlgorithm string `env:"PASSWORD_HASH_ALGORITHM" envDefault:"sha256"`
}

// Load reads environment variables, optionally seeded from the file at path,
// into a Config and validates it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(path)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := password.New(c.PasswordHashAlgorithm); err != nil {
		return fmt.Errorf("invalid PASSWORD_HASH_ALGORITHM: %w", err)
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if !strings.HasPrefix(c.APIV1Prefix, "/") {
		return fmt.Errorf("API_V1_PREFIX must start with '/', got %q", c.APIV1Prefix)
	}
	return nil
}

// DSN returns DatabaseURL when set, otherwise a pgx URL built from the
// POSTGRES_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// HTTPAddr is the listen address of the HTTP server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

// RedisAddr returns the Redis address, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
