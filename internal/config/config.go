package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provider kinds for the external results feed
const (
	ProviderSportsDataIO = "sportsdataio"
	ProviderCFBD         = "cfbd"
)

var defaultProviderURLs = map[string]string{
	ProviderSportsDataIO: "https://api.sportsdata.io/v3/cfb",
	ProviderCFBD:         "https://api.collegefootballdata.com",
}

// Config holds all application configuration
type Config struct {
	// External results provider
	ProviderKind    string        `envconfig:"PROVIDER_KIND" default:"sportsdataio"`
	ProviderAPIKey  string        `envconfig:"PROVIDER_API_KEY"`
	ProviderBaseURL string        `envconfig:"PROVIDER_BASE_URL"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"pickem"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"pickem"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Season in play; zero means the current calendar year
	Season int `envconfig:"SEASON" default:"0"`

	// Scheduler
	EnableScheduler  bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	AliasRefreshCron string `envconfig:"ALIAS_REFRESH_CRON" default:"*/15 * * * *"`
	ResultSyncCron   string `envconfig:"RESULT_SYNC_CRON" default:"*/10 * * * *"`

	// API Rate Limiting
	APIRateLimit int `envconfig:"API_RATE_LIMIT" default:"10"`

	// Caching TTL (in seconds)
	CacheTTLStandings int `envconfig:"CACHE_TTL_STANDINGS" default:"300"` // 5 minutes

	// Rules
	PicksPerWeek int `envconfig:"PICKS_PER_WEEK" default:"6"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	switch c.ProviderKind {
	case ProviderSportsDataIO, ProviderCFBD:
	default:
		return fmt.Errorf("PROVIDER_KIND must be %q or %q, got %q", ProviderSportsDataIO, ProviderCFBD, c.ProviderKind)
	}

	if c.EnableScheduler && c.ProviderAPIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY is required when the scheduler is enabled")
	}

	if c.PicksPerWeek <= 0 {
		return fmt.Errorf("PICKS_PER_WEEK must be positive")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// ProviderURL returns PROVIDER_BASE_URL or the default for the provider kind
func (c *Config) ProviderURL() string {
	if c.ProviderBaseURL != "" {
		return c.ProviderBaseURL
	}
	return defaultProviderURLs[c.ProviderKind]
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// StandingsTTL returns the standings cache lifetime
func (c *Config) StandingsTTL() time.Duration {
	return time.Duration(c.CacheTTLStandings) * time.Second
}

// CurrentSeason returns the configured season or the season in play at now.
// A season runs from August through the January bowls, so January to July belong to the previous year.
func (c *Config) CurrentSeason(now time.Time) int {
	if c.Season > 0 {
		return c.Season
	}
	if now.Month() < time.August {
		return now.Year() - 1
	}
	return now.Year()
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
