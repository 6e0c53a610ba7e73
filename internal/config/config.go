package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/pkg/db"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

const devSecret = "dev-secret-change-in-production"

// Config holds the configuration for the coupon service. Variable names
// are used verbatim, without a prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int         `envconfig:"HTTP_PORT" default:"8080"`

	// memory, postgres or mongo
	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`
	db.PostgresConfig
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"coupon_studio"`

	// Empty disables the redis feed and the asynq sweeper.
	RedisURL string `envconfig:"REDIS_URL" default:""`

	ReplicateToken   string `envconfig:"REPLICATE_API_TOKEN" default:""`
	ReplicateBaseURL string `envconfig:"REPLICATE_BASE_URL" default:"https://api.replicate.com/v1"`

	JWTSecret          string        `envconfig:"JWT_SECRET" default:""`
	TokenTTL           time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	SessionSecret      string        `envconfig:"SESSION_SECRET" default:""`
	GoogleClientID     string        `envconfig:"GOOGLE_CLIENT_ID" default:""`
	GoogleClientSecret string        `envconfig:"GOOGLE_CLIENT_SECRET" default:""`
	GoogleCallbackURL  string        `envconfig:"GOOGLE_CALLBACK_URL" default:"http://localhost:8080/auth/google/callback"`

	NearbyRadiusKm      float64       `envconfig:"NEARBY_RADIUS_KM" default:"10"`
	NearbyLimit         int           `envconfig:"NEARBY_LIMIT" default:"50"`
	ProfileCacheTTL     time.Duration `envconfig:"PROFILE_CACHE_TTL" default:"30s"`
	ProfileFetchWorkers int           `envconfig:"PROFILE_FETCH_WORKERS" default:"4"`

	StaleAfter    time.Duration `envconfig:"STALE_AFTER" default:"5m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"2m"`
}

// New loads .env when present, then parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("store_driver", cfg.StoreDriver).
		Int("port", cfg.HTTPPort).
		Bool("redis", cfg.RedisURL != "").
		Bool("replicate_token_present", cfg.ReplicateToken != "").
		Bool("google_oauth", cfg.GoogleClientID != "").
		Float64("nearby_radius_km", cfg.NearbyRadiusKm).
		Dur("stale_after", cfg.StaleAfter).
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate checks values envconfig cannot and fills development secrets.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "postgres", "mongo":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.NearbyRadiusKm <= 0 {
		return fmt.Errorf("NEARBY_RADIUS_KM must be positive")
	}
	if c.NearbyLimit <= 0 {
		return fmt.Errorf("NEARBY_LIMIT must be positive")
	}
	if c.ProfileFetchWorkers <= 0 {
		c.ProfileFetchWorkers = 1
	}

	if c.IsProduction() {
		if c.JWTSecret == "" || c.SessionSecret == "" {
			return fmt.Errorf("JWT_SECRET and SESSION_SECRET are required in production")
		}
		return nil
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, using development secret")
		c.JWTSecret = devSecret
	}
	if c.SessionSecret == "" {
		c.SessionSecret = devSecret
	}
	return nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:         EnvTesting,
		LogLevel:            "debug",
		HTTPPort:            8080,
		StoreDriver:         "memory",
		ReplicateBaseURL:    "http://localhost:0",
		JWTSecret:           "test-secret",
		SessionSecret:       "test-secret",
		TokenTTL:            time.Hour,
		NearbyRadiusKm:      10,
		NearbyLimit:         50,
		ProfileCacheTTL:     time.Second,
		ProfileFetchWorkers: 2,
		StaleAfter:          5 * time.Minute,
		SweepInterval:       2 * time.Minute,
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
