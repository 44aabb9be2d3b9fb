package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig composes the configuration for the fixhome API.
//
// Values are loaded from environment variables via github.com/caarlos0/env.
// A local .env file is honored when present (development convenience only).
type AppConfig struct {
	HTTP    HTTPConfig    `envPrefix:"HTTP_"`
	DB      DBConfig      `envPrefix:"DB_"`
	Auth    AuthConfig    `envPrefix:"AUTH_"`
	Rewards RewardsConfig `envPrefix:"REWARDS_"`
}

// HTTPConfig contains server bind settings.
type HTTPConfig struct {
	Addr string `env:"ADDR" envDefault:":8080"`
	// PerPageDefault and PerPageMax bound list pagination sizes.
	PerPageDefault int `env:"PER_PAGE_DEFAULT" envDefault:"15"`
	PerPageMax     int `env:"PER_PAGE_MAX" envDefault:"100"`
}

// DBConfig contains PostgreSQL connection settings.
type DBConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"fixhome"`
	Password string `env:"PASSWORD" envDefault:"fixhome"`
	Name     string `env:"NAME" envDefault:"fixhome"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
	// RunMigrationsOnStart applies pending migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN renders the pgx connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// AuthConfig contains token signing settings.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	// TokenTTLHours bounds bearer token lifetime.
	TokenTTLHours int `env:"TOKEN_TTL_HOURS" envDefault:"24"`
}

// RewardsConfig tunes the loyalty rewards engine.
type RewardsConfig struct {
	// ThresholdCents is the cumulative paid spend that earns a reward.
	ThresholdCents int64 `env:"THRESHOLD_CENTS" envDefault:"100000"`
	// Percent is the discount granted by an earned reward.
	Percent int `env:"PERCENT" envDefault:"20"`
	// ExpiryMonths is how long an earned reward stays redeemable.
	ExpiryMonths int `env:"EXPIRY_MONTHS" envDefault:"6"`
}

// Load reads configuration from the environment, honoring a .env file when
// one exists in the working directory.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to values loaded from env.
func (c *AppConfig) Sanitize() {
	if c.HTTP.PerPageDefault <= 0 {
		c.HTTP.PerPageDefault = 15
	}
	if c.HTTP.PerPageMax <= 0 || c.HTTP.PerPageMax > 500 {
		c.HTTP.PerPageMax = 100
	}
	if c.HTTP.PerPageDefault > c.HTTP.PerPageMax {
		c.HTTP.PerPageDefault = c.HTTP.PerPageMax
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Rewards.ThresholdCents <= 0 {
		c.Rewards.ThresholdCents = 100000
	}
	if c.Rewards.Percent <= 0 || c.Rewards.Percent >= 100 {
		c.Rewards.Percent = 20
	}
	if c.Rewards.ExpiryMonths <= 0 {
		c.Rewards.ExpiryMonths = 6
	}
}
