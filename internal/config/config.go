package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the core runtime configuration for the service.
// Values are sourced from APP_* environment variables (optionally loaded from
// a .env file first), with defaults where appropriate.
type Config struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	DatabaseURL string `mapstructure:"database_url"`
	LogLevel    string `mapstructure:"log_level"`

	// TokenSecret is the passphrase used to seal account API tokens at rest.
	// Changing it makes stored tokens unreadable.
	TokenSecret string `mapstructure:"token_secret"`

	TogglBaseURL       string  `mapstructure:"toggl_base_url"`
	TogglRatePerSecond float64 `mapstructure:"toggl_rate_per_second"`

	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	RefreshPoll     time.Duration `mapstructure:"refresh_poll"`
	RefreshDebounce time.Duration `mapstructure:"refresh_debounce"`

	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
}

var defaults = map[string]any{
	"listen_addr":           ":8080",
	"database_url":          "",
	"log_level":             "info",
	"token_secret":          "changeme",
	"toggl_base_url":        "https://api.track.toggl.com/api/v9",
	"toggl_rate_per_second": 1.0,
	"cache_ttl":             5 * time.Minute,
	"refresh_poll":          5 * time.Minute,
	"refresh_debounce":      60 * time.Second,
	"fetch_concurrency":     4,
	"fetch_timeout":         30 * time.Second,
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	dsn := strings.TrimSpace(c.DatabaseURL)
	if dsn == "" {
		return errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}
	if c.TokenSecret == "" {
		return errors.New("APP_TOKEN_SECRET must not be empty")
	}
	if c.TogglRatePerSecond <= 0 {
		return errors.New("APP_TOGGL_RATE_PER_SECOND must be positive")
	}
	if c.FetchConcurrency <= 0 {
		return errors.New("APP_FETCH_CONCURRENCY must be positive")
	}
	for name, d := range map[string]time.Duration{
		"APP_CACHE_TTL":        c.CacheTTL,
		"APP_REFRESH_POLL":     c.RefreshPoll,
		"APP_REFRESH_DEBOUNCE": c.RefreshDebounce,
		"APP_FETCH_TIMEOUT":    c.FetchTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	return nil
}
