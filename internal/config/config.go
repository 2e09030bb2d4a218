package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/reelhunter/recruiter/pkg/config"
	"github.com/reelhunter/recruiter/pkg/database"
	"github.com/reelhunter/recruiter/pkg/validator"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the recruiter service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"recruiter"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"recruiter_secret"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"recruiter"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	SlowQuery        time.Duration `env:"POSTGRES_SLOW_QUERY" envDefault:"200ms"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Hosted identity provider
	AuthURL       string        `env:"AUTH_URL" envDefault:"http://localhost:54321"`
	AuthAnonKey   string        `env:"AUTH_ANON_KEY" envDefault:""`
	AuthJWTSecret string        `env:"AUTH_JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`

	// Outbound email
	EmailSenderAddress string `env:"EMAIL_SENDER_ADDRESS" envDefault:"noreply@reelhunter.co.za"`
	EmailSenderName    string `env:"EMAIL_SENDER_NAME" envDefault:"ReelHunter Platform"`
	EmailReplyTo       string `env:"EMAIL_REPLY_TO" envDefault:"support@reelhunter.co.za"`
	EmailCompanyName   string `env:"EMAIL_COMPANY_NAME" envDefault:"ReelHunter"`

	// Pipeline
	PipelinePreserveOnError bool          `env:"PIPELINE_PRESERVE_ON_ERROR" envDefault:"true"`
	WorkspaceIdleTTL        time.Duration `env:"WORKSPACE_IDLE_TTL" envDefault:"30m"`

	// Rate limiting for the auth endpoints
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load recruiter config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.AuthURL == "" {
		return fmt.Errorf("AUTH_URL is required")
	}
	if c.WorkspaceIdleTTL <= 0 {
		return fmt.Errorf("WORKSPACE_IDLE_TTL must be positive, got %s", c.WorkspaceIdleTTL)
	}

	// Display names belong in EMAIL_SENDER_NAME, not in the address.
	if err := validator.Email("EMAIL_SENDER_ADDRESS", c.EmailSenderAddress); err != nil {
		return fmt.Errorf("EMAIL_SENDER_ADDRESS is not a valid address: %q", c.EmailSenderAddress)
	}
	if c.EmailReplyTo != "" {
		if err := validator.Email("EMAIL_REPLY_TO", c.EmailReplyTo); err != nil {
			return fmt.Errorf("EMAIL_REPLY_TO is not a valid address: %q", c.EmailReplyTo)
		}
	}

	if !c.IsDevelopment() {
		if c.AuthJWTSecret == defaultJWTSecret {
			return fmt.Errorf("AUTH_JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.AuthJWTSecret) < 32 {
			return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters long, got %d", len(c.AuthJWTSecret))
		}
		if c.AuthAnonKey == "" {
			return fmt.Errorf("AUTH_ANON_KEY is required in %q mode", c.Environment)
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs outside production-like
// environments.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "test"
}

// IsProduction reports whether outbound email is really sent.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Postgres returns the pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.PostgresMaxConns
	return pg
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	r := database.DefaultRedisConfig()
	r.Host = c.RedisHost
	r.Port = c.RedisPort
	r.Password = c.RedisPassword
	r.DB = c.RedisDB
	return r
}
