package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the full application configuration, loaded from the
// environment.
type Config struct {
	Environment string `env:"ENV" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                int `env:"SERVER_PORT" env-default:"8080"`
	ReadTimeoutSeconds  int `env:"SERVER_READ_TIMEOUT" env-default:"15"`
	WriteTimeoutSeconds int `env:"SERVER_WRITE_TIMEOUT" env-default:"120"`
	IdleTimeoutSeconds  int `env:"SERVER_IDLE_TIMEOUT" env-default:"60"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host               string `env:"DB_HOST" env-default:"localhost"`
	Port               int    `env:"DB_PORT" env-default:"5432"`
	User               string `env:"DB_USER" env-default:"postgres"`
	Password           string `env:"DB_PASSWORD" env-default:"postgres"`
	Name               string `env:"DB_NAME" env-default:"storyhealer"`
	SSLMode            string `env:"DB_SSL_MODE" env-default:"disable"`
	MaxConnections     int    `env:"DB_MAX_CONNECTIONS" env-default:"10"`
	MaxConnIdleMinutes int    `env:"DB_MAX_IDLE_MINUTES" env-default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// AIConfig holds settings for the generation, image and vision clients.
type AIConfig struct {
	APIKey         string `env:"AI_API_KEY"`
	BaseURL        string `env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model          string `env:"AI_MODEL" env-default:"gpt-4o"`
	ImageModel     string `env:"AI_IMAGE_MODEL" env-default:"dall-e-3"`
	VisionModel    string `env:"AI_VISION_MODEL" env-default:"gpt-4o"`
	TimeoutSeconds int    `env:"AI_TIMEOUT" env-default:"120"`
	// ImageIntervalMS is the minimum spacing between image generation
	// calls during the batch illustration pass.
	ImageIntervalMS int `env:"AI_IMAGE_INTERVAL_MS" env-default:"1000"`
}

// Timeout returns the upstream call timeout as a duration.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ImageInterval returns the spacing between batch illustration calls.
func (c AIConfig) ImageInterval() time.Duration {
	return time.Duration(c.ImageIntervalMS) * time.Millisecond
}

// CORSConfig holds allowed origins for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY not set")
	}
	return &cfg, nil
}
