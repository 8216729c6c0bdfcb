// apps/go-server/internal/config/config.go
//
// Process configuration.
// Values come from the environment (optionally seeded from a .env file) and
// may be overridden by command-line flags in main.

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds every tunable of the server.
type Config struct {
	Port           string        `env:"PORT"            envDefault:"5175"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT"      envDefault:"json"` // json | console
	Storage        string        `env:"STORAGE"         envDefault:"sqlite"`
	DBPath         string        `env:"DB_PATH"         envDefault:"./data/bowling.db"`
	ClientOrigin   string        `env:"CLIENT_ORIGIN"   envDefault:"http://localhost:5173"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIModel        string        `env:"OPENAI_MODEL"        envDefault:"gpt-4o-mini"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL"     envDefault:"https://api.openai.com/v1"`
	SummaryTimeout     time.Duration `env:"SUMMARY_TIMEOUT"     envDefault:"30s"`
	SummaryTemperature float64       `env:"SUMMARY_TEMPERATURE" envDefault:"0.8"`
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageSQLite, StorageMemory, c.Storage)
	}
	if c.Storage == StorageSQLite && c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required for sqlite storage")
	}
	if c.RequestTimeout <= 0 || c.SummaryTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// SummariesEnabled reports whether an API key is configured.
func (c Config) SummariesEnabled() bool { return c.OpenAIAPIKey != "" }
