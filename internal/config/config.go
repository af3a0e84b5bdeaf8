package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port             int    `env:"PORT" envDefault:"8080"`
	DatabaseURL      string `env:"DATABASE_URL,required"`
	RedisURL         string `env:"REDIS_URL,required"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiModel      string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	EncryptionKey    string `env:"ENCRYPTION_KEY"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	ReminderDelayMin int    `env:"REMINDER_DELAY_MINUTES" envDefault:"30"`
	HistorySyncDays  int    `env:"HISTORY_SYNC_DAYS" envDefault:"7"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) ReminderDelay() time.Duration {
	return time.Duration(c.ReminderDelayMin) * time.Minute
}

func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.HistorySyncDays) * 24 * time.Hour
}

func (c *Config) Validate(isProduction bool) error {
	if c.EncryptionKey != "" && len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
	}

	if isProduction {
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: transport credentials will be stored in plaintext")
		}
		if c.GeminiAPIKey == "" {
			log.Warn().Msg("GEMINI_API_KEY is empty in production: replies will use the offline fallback responder")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
