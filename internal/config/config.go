package config

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Uploads  UploadsConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int `env:"SERVER_PORT, default=8080"`
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string `env:"DB_HOST, default=localhost"`
	Port       int    `env:"DB_PORT, default=5432"`
	Username   string `env:"DB_USERNAME, default=postgres"`
	Password   string `env:"DB_PASSWORD, default=password"`
	DBName     string `env:"DB_NAME, default=pettycash"`
	SSLMode    string `env:"DB_SSLMODE, default=disable"`
	TestDBName string `env:"TEST_DB_NAME, default=pettycash_test"` // Separate database for testing
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	// JWTSecret signs bearer credentials. The compiled-in default is
	// insecure and only suitable for local development.
	JWTSecret   string `env:"JWT_SECRET, default=dev-secret"`
	TokenTTLHrs int    `env:"TOKEN_TTL_HOURS, default=24"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level  string `env:"LOG_LEVEL, default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
}

// UploadsConfig holds the receipt storage configuration
type UploadsConfig struct {
	Dir string `env:"UPLOADS_DIR, default=uploads"`
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from the environment. A .env file is
// honoured when present; a missing one is not an error.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &cfg, nil
}
