package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all configuration for the price tracker.
type Config struct {
	// Storage and HTTP surface
	DatabaseURL string `mapstructure:"database_url"`
	HTTPAddr    string `mapstructure:"http_addr"`

	// Retailer endpoints
	RetailerBaseURL    string `mapstructure:"retailer_base_url"`
	HistoryURLTemplate string `mapstructure:"history_url_template"`
	HistoryField       string `mapstructure:"history_field"`

	// Fetch policy
	FetchMaxAttempts       int           `mapstructure:"fetch_max_attempts"`
	FetchBackoffIncrement  time.Duration `mapstructure:"fetch_backoff_increment"`
	FetchAttemptTimeout    time.Duration `mapstructure:"fetch_attempt_timeout"`
	FetchConcurrency       int           `mapstructure:"fetch_concurrency"`
	FetchRequestsPerSecond float64       `mapstructure:"fetch_requests_per_second"`
	UserAgent              string        `mapstructure:"user_agent"`

	// Refresh schedule
	Timezone        string        `mapstructure:"timezone"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// Optional quote cache
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// Optional alert mail; alerts are logged when SMTPHost is empty
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	SMTPTimeout  time.Duration `mapstructure:"smtp_timeout"`
	AlertFrom    string        `mapstructure:"alert_from"`
	AlertTo      string        `mapstructure:"alert_to"`

	LogLevel string `mapstructure:"log_level"`
}

// envKeys lists every key bound to its upper-case environment variable.
var envKeys = []string{
	"database_url",
	"http_addr",
	"retailer_base_url",
	"history_url_template",
	"history_field",
	"fetch_max_attempts",
	"fetch_backoff_increment",
	"fetch_attempt_timeout",
	"fetch_concurrency",
	"fetch_requests_per_second",
	"user_agent",
	"timezone",
	"refresh_interval",
	"redis_addr",
	"redis_password",
	"redis_db",
	"smtp_host",
	"smtp_port",
	"smtp_username",
	"smtp_password",
	"smtp_timeout",
	"alert_from",
	"alert_to",
	"log_level",
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - DATABASE_URL
//   - everything else is optional, see SetDefault calls below
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("retailer_base_url", "https://tweakers.net/pricewatch/")
	v.SetDefault("history_url_template", "https://tweakers.net/ajax/price_chart/%s/nl/")
	v.SetDefault("history_field", "dataset")
	v.SetDefault("fetch_max_attempts", 3)
	v.SetDefault("fetch_backoff_increment", "1s")
	v.SetDefault("fetch_attempt_timeout", "10s")
	v.SetDefault("fetch_concurrency", 4)
	v.SetDefault("fetch_requests_per_second", 0)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("refresh_interval", "1h")
	v.SetDefault("redis_db", 0)
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_timeout", "10s")
	v.SetDefault("log_level", "info")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.pricetracker")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	for _, key := range envKeys {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports missing required fields together, then the first invalid value.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.RetailerBaseURL == "" {
		missing = append(missing, "RETAILER_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.FetchMaxAttempts <= 0 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be positive, got %d", c.FetchMaxAttempts)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	if c.FetchBackoffIncrement < 0 {
		return fmt.Errorf("FETCH_BACKOFF_INCREMENT must not be negative, got %s", c.FetchBackoffIncrement)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.SMTPHost != "" && len(c.AlertRecipients()) == 0 {
		return fmt.Errorf("ALERT_TO is required when SMTP_HOST is set")
	}
	return nil
}

// Location returns the time zone calendar days are counted in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// AlertRecipients splits AlertTo on commas.
func (c *Config) AlertRecipients() []string {
	var out []string
	for _, addr := range strings.Split(c.AlertTo, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
