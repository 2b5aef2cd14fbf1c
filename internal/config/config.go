// Package config holds the process configuration. Values come from flags or
// the environment; see the kong tags for names and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const DefaultTimezone = "Asia/Almaty"

type Config struct {
	DatabaseURL string `name:"database-url" env:"DATABASE_URL" default:"data/scheduler.db" help:"PostgreSQL URL (postgres://...) or SQLite file path."`
	Port        string `name:"port" env:"PORT" default:"8080" help:"HTTP listen port."`
	Timezone    string `name:"timezone" env:"APP_TIMEZONE" default:"Asia/Almaty" help:"IANA timezone rules and slots are expressed in."`

	GoogleClientID     string        `name:"google-client-id" env:"GOOGLE_CLIENT_ID" help:"Google OAuth client id."`
	GoogleClientSecret string        `name:"google-client-secret" env:"GOOGLE_CLIENT_SECRET" help:"Google OAuth client secret."`
	GoogleRedirectURL  string        `name:"google-redirect-url" env:"GOOGLE_REDIRECT_URL" help:"OAuth redirect URL registered with Google."`
	CalendarTimeout    time.Duration `name:"calendar-timeout" env:"CALENDAR_TIMEOUT" default:"5s" help:"Timeout for each Google Calendar call."`

	JWTSecret string        `name:"jwt-secret" env:"JWT_HMAC_SECRET" help:"HMAC secret for session tokens."`
	JWTTTL    time.Duration `name:"jwt-ttl" env:"JWT_TTL" default:"24h" help:"Session token lifetime."`

	RedisAddr    string        `name:"redis-addr" env:"REDIS_ADDR" help:"Redis address for the busy-time cache. Empty disables the cache."`
	BusyCacheTTL time.Duration `name:"busy-cache-ttl" env:"BUSY_CACHE_TTL" default:"5m" help:"How long cached busy time stays valid."`

	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level."`
	LogFile  string `name:"log-file" env:"LOG_FILE" help:"Also write logs to this rotating file."`
	LogJSON  bool   `name:"log-json" env:"LOG_JSON" help:"Log as JSON."`
}

// IsPostgres reports whether DatabaseURL points at PostgreSQL rather than a
// SQLite file.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GoogleConfigured reports whether Google login and calendar sync can run.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Validate checks what the HTTP server needs to start.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_HMAC_SECRET required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
