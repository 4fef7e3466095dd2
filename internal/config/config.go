package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Keycloak  KeycloakConfig
	Assertion AssertionConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SessionConfig selects the backend and the expiry policy.
type SessionConfig struct {
	Store         string
	Expiry        time.Duration
	MaxExpiry     time.Duration
	SweepInterval time.Duration
	URLParam      string
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

// Addr is host:port for go-redis.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type PostgresConfig struct {
	URL     string
	Timeout time.Duration
}

type KeycloakConfig struct {
	URL           string
	Realm         string
	ClientID      string
	ClientSecret  string
	AllowInsecure bool
}

// AssertionConfig configures the shared-secret JWT handed over by the login service.
type AssertionConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

const (
	StoreMongo    = "mongo"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// LoadConfig loads configuration from environment variables and .env file
// and validates it for running the service.
func LoadConfig() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration without validating it. Tools that only touch
// one backend (cmd/migrate) check the settings they use themselves.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SESSION_STORE", StoreMongo)
	v.SetDefault("SESSION_EXPIRY", "720h")
	v.SetDefault("SESSION_MAX_EXPIRY", "2160h")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("SESSION_URL_PARAM", "session_token")
	v.SetDefault("MONGODB_DATABASE", "moodlens")
	v.SetDefault("MONGODB_COLLECTION", "sessions")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "session:")
	v.SetDefault("POSTGRES_TIMEOUT", 10)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Session: SessionConfig{
			Store:         strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
			Expiry:        v.GetDuration("SESSION_EXPIRY"),
			MaxExpiry:     v.GetDuration("SESSION_MAX_EXPIRY"),
			SweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),
			URLParam:      v.GetString("SESSION_URL_PARAM"),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:      v.GetString("REDIS_HOST"),
			Port:      v.GetString("REDIS_PORT"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		Postgres: PostgresConfig{
			URL:     v.GetString("POSTGRES_URL"),
			Timeout: time.Duration(v.GetInt("POSTGRES_TIMEOUT")) * time.Second,
		},
		Keycloak: KeycloakConfig{
			URL:           v.GetString("KEYCLOAK_URL"),
			Realm:         v.GetString("KEYCLOAK_REALM"),
			ClientID:      v.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret:  v.GetString("KEYCLOAK_CLIENT_SECRET"),
			AllowInsecure: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		Assertion: AssertionConfig{
			Secret:   v.GetString("IDP_ASSERTION_SECRET"),
			Issuer:   v.GetString("IDP_ASSERTION_ISSUER"),
			Audience: v.GetString("IDP_ASSERTION_AUDIENCE"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}
	return cfg
}

// Validate checks the settings the selected backend and expiry policy depend on.
func (c *Config) Validate() error {
	var errs []error
	switch c.Session.Store {
	case StoreMongo:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when SESSION_STORE=mongo"))
		}
	case StoreRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when SESSION_STORE=redis"))
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required when SESSION_STORE=postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q (want mongo, redis, postgres or memory)", c.Session.Store))
	}
	if c.Session.Expiry <= 0 {
		errs = append(errs, errors.New("SESSION_EXPIRY must be positive"))
	}
	if c.Session.MaxExpiry <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_EXPIRY must be positive"))
	}
	if c.Session.Expiry > c.Session.MaxExpiry {
		errs = append(errs, fmt.Errorf("SESSION_EXPIRY (%s) exceeds SESSION_MAX_EXPIRY (%s)", c.Session.Expiry, c.Session.MaxExpiry))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.Session.URLParam == "" {
		errs = append(errs, errors.New("SESSION_URL_PARAM must not be empty"))
	}
	if c.RateLimit.UseRedis && c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required when RATE_LIMIT_USE_REDIS=true"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
