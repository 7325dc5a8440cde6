// Package config loads ledger settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/marshallshelly/pebble-ledger/internal/database"
	"github.com/marshallshelly/pebble-ledger/internal/logging"
)

// DefaultEnvFile is read when no env file is named explicitly.
const DefaultEnvFile = ".env"

// Config is the full runtime configuration.
type Config struct {
	Database  database.Config
	LogLevel  string
	LogFormat string
}

// Load reads envFile into the process environment (existing variables win)
// and builds a Config from it. A missing DefaultEnvFile is not an error; a
// missing file that was named explicitly is. The result is not validated,
// so callers can apply overrides before calling Validate.
func Load(envFile string) (*Config, error) {
	file := envFile
	if file == "" {
		file = DefaultEnvFile
	}

	if err := godotenv.Load(file); err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables only.
func FromEnv() *Config {
	defaults := database.DefaultConfig()

	return &Config{
		Database: database.Config{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("POSTGRES_HOST", defaults.Host),
			Port:     getEnvAsInt("POSTGRES_PORT", defaults.Port),
			User:     getEnv("POSTGRES_USER", defaults.User),
			Password: getEnv("POSTGRES_PASSWORD", defaults.Password),
			Database: getEnv("POSTGRES_DB", defaults.Database),
			SSLMode:  getEnv("POSTGRES_SSL_MODE", defaults.SSLMode),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", int(defaults.MaxConns))),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", int(defaults.MinConns))),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", logging.FormatJSON),
	}
}

// Validate rejects settings the pool or logger would refuse later.
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Host == "" {
		return errors.New("database: DATABASE_URL or POSTGRES_HOST is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database: DB_MAX_CONNS must be positive, got %d", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database: DB_MIN_CONNS must be between 0 and %d, got %d", c.Database.MaxConns, c.Database.MinConns)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
