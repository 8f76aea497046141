// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
	// postgres or memory
	Store string `envconfig:"STORE" default:"postgres"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	Database Database
	Redis    Redis
	Rabbit   Rabbit
	Telegram Telegram
	SMTP     SMTP
	Otel     Otel
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"farmhouse"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

// DSN builds a libpq-compatible connection string.
func (c Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type Redis struct {
	// Empty disables the calendar cache.
	URL      string        `envconfig:"REDIS_URL"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"CALENDAR_CACHE_TTL" default:"5m"`
}

type Rabbit struct {
	// Empty disables event publishing.
	URL      string `envconfig:"RABBIT_URL"`
	Exchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
}

type Telegram struct {
	Token       string `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminChatID int64  `envconfig:"TELEGRAM_ADMIN_CHAT_ID"`
}

type SMTP struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	User     string `envconfig:"SMTP_USER"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM" default:"bookings@nirmalfarms.local"`
}

type Otel struct {
	Enabled     bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"farmhouse-booking"`
	Environment string `envconfig:"ENV" default:"dev"`
}

// Load reads an optional .env file and then the process environment.
func Load() (App, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("process env: %w", err)
	}
	if c.Store != "postgres" && c.Store != "memory" {
		return c, fmt.Errorf("STORE must be postgres or memory, got %q", c.Store)
	}
	return c, nil
}

// Location resolves the configured timezone used to decide "today".
func (c App) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
