package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/booking/internal/domain/booking"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL      string   `mapstructure:"REDIS_URL"`
	DefaultTenant string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	LogLevel      string   `mapstructure:"LOG_LEVEL"`
	LogFile       string   `mapstructure:"LOG_FILE"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`

	AMQPURL             string        `mapstructure:"AMQP_URL"`
	EventsExchange      string        `mapstructure:"EVENTS_EXCHANGE"`
	EventsTopic         string        `mapstructure:"EVENTS_TOPIC"`
	EventQueueSize      int           `mapstructure:"EVENT_QUEUE_SIZE"`
	EventPublishTimeout time.Duration `mapstructure:"EVENT_PUBLISH_TIMEOUT"`

	IdentityServiceURL string        `mapstructure:"IDENTITY_SERVICE_URL"`
	IdentityTimeout    time.Duration `mapstructure:"IDENTITY_TIMEOUT"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	BusinessHourStart int    `mapstructure:"BUSINESS_HOUR_START"`
	BusinessHourEnd   int    `mapstructure:"BUSINESS_HOUR_END"`
	AllowWeekends     bool   `mapstructure:"ALLOW_WEEKENDS"`
	MinAdvanceHours   int    `mapstructure:"MIN_ADVANCE_HOURS"`
	MaxDaysInAdvance  int    `mapstructure:"MAX_DAYS_IN_ADVANCE"`
	AllowedDurations  string `mapstructure:"ALLOWED_DURATIONS"`
	Timezone          string `mapstructure:"TIMEZONE"`
}

var defaults = map[string]interface{}{
	"PORT":                  "8000",
	"ENV":                   "development",
	"DB_MAX_CONNS":          20,
	"DB_MIN_CONNS":          5,
	"DEFAULT_TENANT":        "default",
	"CORS_ORIGINS":          "http://localhost:3000",
	"LOG_LEVEL":             "info",
	"EVENTS_EXCHANGE":       "booking.events",
	"EVENTS_TOPIC":          booking.DefaultTopic,
	"EVENT_QUEUE_SIZE":      100,
	"EVENT_PUBLISH_TIMEOUT": "5s",
	"IDENTITY_SERVICE_URL":  "http://localhost:8081",
	"IDENTITY_TIMEOUT":      "3s",
	"REQUEST_TIMEOUT":       "30s",
	"BUSINESS_HOUR_START":   8,
	"BUSINESS_HOUR_END":     18,
	"ALLOW_WEEKENDS":        false,
	"MIN_ADVANCE_HOURS":     1,
	"MAX_DAYS_IN_ADVANCE":   90,
	"ALLOWED_DURATIONS":     "",
	"TIMEZONE":              "UTC",
}

var envKeys = []string{
	"DATABASE_URL", "REDIS_URL", "LOG_FILE", "AMQP_URL",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
		v.BindEnv(key)
	}
	// Bind the keys without defaults so Unmarshal picks them up
	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active and unauthenticated requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters in production")
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("EVENT_QUEUE_SIZE must be positive, got %d", c.EventQueueSize)
	}
	if c.IdentityServiceURL == "" {
		return fmt.Errorf("IDENTITY_SERVICE_URL is required")
	}
	if _, err := c.BookingPolicy(); err != nil {
		return err
	}
	return nil
}

// BookingPolicy builds the booking rules from the BUSINESS_*, *_ADVANCE,
// ALLOWED_DURATIONS and TIMEZONE settings.
func (c *Config) BookingPolicy() (booking.Policy, error) {
	if c.BusinessHourStart < 0 || c.BusinessHourEnd > 24 || c.BusinessHourStart >= c.BusinessHourEnd {
		return booking.Policy{}, fmt.Errorf("business hours %d-%d are invalid", c.BusinessHourStart, c.BusinessHourEnd)
	}
	if c.MinAdvanceHours < 0 || c.MaxDaysInAdvance <= 0 {
		return booking.Policy{}, fmt.Errorf("MIN_ADVANCE_HOURS must be >= 0 and MAX_DAYS_IN_ADVANCE > 0")
	}
	durations, err := booking.ParseDurations(c.AllowedDurations)
	if err != nil {
		return booking.Policy{}, fmt.Errorf("ALLOWED_DURATIONS: %w", err)
	}
	if strings.EqualFold(c.Timezone, "Local") {
		return booking.Policy{}, fmt.Errorf("TIMEZONE must name an IANA zone, not Local")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return booking.Policy{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	return booking.Policy{
		BusinessHourStart: c.BusinessHourStart,
		BusinessHourEnd:   c.BusinessHourEnd,
		AllowWeekends:     c.AllowWeekends,
		MinAdvanceHours:   c.MinAdvanceHours,
		MaxDaysInAdvance:  c.MaxDaysInAdvance,
		AllowedDurations:  durations,
		Location:          loc,
	}, nil
}
