package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL        string        `env:"DATABASE_URL" envDefault:"geomeet.db"`
	HTTPPort           string        `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"INFO"`
	JWTSecret          string        `env:"JWT_SECRET"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	MatchBoxDegrees    float64       `env:"MATCH_BOX_DEGREES" envDefault:"0.01"`
	SearchLimit        int           `env:"SEARCH_LIMIT" envDefault:"25"`
	AdvanceMaxRetries  int           `env:"ADVANCE_MAX_RETRIES" envDefault:"3"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

var AppConfig Config

// LoadConfig reads an optional .env file, then the process environment,
// into AppConfig.
func LoadConfig() error {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, relying on environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Parse builds a Config from the current environment without touching
// AppConfig.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.MatchBoxDegrees <= 0 {
		return fmt.Errorf("MATCH_BOX_DEGREES must be > 0")
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be > 0")
	}
	if c.AdvanceMaxRetries <= 0 {
		return fmt.Errorf("ADVANCE_MAX_RETRIES must be > 0")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return nil
}

// UsesPostgres reports whether DatabaseURL points at a Postgres server
// rather than a SQLite file.
func (c Config) UsesPostgres() bool {
	url := strings.ToLower(c.DatabaseURL)
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}
