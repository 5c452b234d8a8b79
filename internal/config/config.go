package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sme-billing/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	AI       AIConfig
	Log      logger.LogConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	AllowedOrigins string // comma-separated
	UploadLimitMB  int
	MigrateOnStart bool
}

// AuthConfig holds the settings used to verify tokens issued by the hosted identity provider.
type AuthConfig struct {
	JWTSecret   string
	JWTAudience string
}

// AIConfig holds settings for the chat-completion endpoint.
type AIConfig struct {
	APIKey  string
	BaseURL string // empty means the provider default
	Model   string
	Timeout time.Duration
}

// Load builds a Config from environment variables. Call godotenv.Load first if a .env file is used.
func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
			UploadLimitMB:  getEnvAsInt("UPLOAD_LIMIT_MB", 50),
			MigrateOnStart: getEnvAsBool("MIGRATE_ON_START", false),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
			JWTAudience: getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
		},
		AI: AIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout: getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		},
		Log: logger.LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			TimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
		},
	}
}

// ValidateServer checks the settings the HTTP server cannot start without.
func (c *Config) ValidateServer() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(n)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
