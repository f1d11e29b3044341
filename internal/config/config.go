// Package config holds the runtime configuration for the messaging backend.
// Values come from the environment (optionally seeded from a .env file) and
// are parsed into a typed struct.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full environment-driven configuration.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"password"`
	DBName     string `env:"DB_NAME" envDefault:"workmeshdb"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-only-secret"`

	// RelationshipURL points at the marketplace service that answers the
	// qualifying-relationship check. Empty means allow-all (local dev).
	RelationshipURL string `env:"RELATIONSHIP_URL" envDefault:""`

	// TelegramBotToken enables the offline-delivery notifier when set.
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:""`

	TypingTTL time.Duration `env:"TYPING_TTL" envDefault:"5s"`

	// Inbound envelope throttle, per connection.
	MessageRatePerSec float64 `env:"MESSAGE_RATE_PER_SEC" envDefault:"10"`
	MessageBurst      int     `env:"MESSAGE_BURST" envDefault:"20"`
}

// DSN renders the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine: real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
