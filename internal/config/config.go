package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port     string
	Env      string
	LogLevel string
	// ProxyHeader names the header carrying the client address behind a
	// reverse proxy. Empty uses the connection address.
	ProxyHeader string

	// Database configuration
	DBType               string // mysql, postgres, sqlite, sqlserver
	DBHost               string
	DBPort               string
	DBAppDatabase        string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string

	// Builder sessions
	AutosaveWindow     time.Duration
	SessionIdleTimeout time.Duration

	// Public viewer
	UnlockSecret        string
	UnlockTTL           time.Duration
	PasswordMaxAttempts int
	PasswordWindow      time.Duration

	// Media storage
	MediaMaxBytes   int64
	S3Region        string
	S3Endpoint      string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string

	// AI generation
	AIEndpoint string
	AIKey      string
	AITimeout  time.Duration
}

// Load loads configuration from environment variables. A dotenv file named
// by ENV_FILE (default .env) is read first when it exists.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		Env:                  getEnv("ENV", "production"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		ProxyHeader:          getEnv("PROXY_HEADER", ""),
		DBType:               getEnv("DB_TYPE", "mysql"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBAppDatabase:        getEnv("DB_DATABASE", ""),
		DBAppUser:            getEnv("DB_APP_USER", ""),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit: getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		AutosaveWindow:       getEnvAsDuration("AUTOSAVE_WINDOW", 2*time.Second),
		SessionIdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		UnlockSecret:         getEnv("UNLOCK_SECRET", ""),
		UnlockTTL:            getEnvAsDuration("UNLOCK_TTL", 12*time.Hour),
		PasswordMaxAttempts:  getEnvAsInt("PASSWORD_MAX_ATTEMPTS", 5),
		PasswordWindow:       getEnvAsDuration("PASSWORD_WINDOW", 15*time.Minute),
		MediaMaxBytes:        int64(getEnvAsInt("MEDIA_MAX_BYTES", 10*1024*1024)),
		S3Region:             getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3Bucket:             getEnv("S3_BUCKET", "love-page-media"),
		S3AccessKey:          getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:          getEnv("S3_SECRET_KEY", ""),
		S3PublicBaseURL:      getEnv("S3_PUBLIC_BASE_URL", ""),
		AIEndpoint:           getEnv("AI_ENDPOINT", ""),
		AIKey:                getEnv("AI_KEY", ""),
		AITimeout:            getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
	}

	// Validate required fields
	if cfg.DBAppDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBAppUser == "" && cfg.DBType != "sqlite" {
		return nil, fmt.Errorf("DB_APP_USER is required")
	}
	if cfg.AuthzURL == "" {
		return nil, fmt.Errorf("AUTHZ_URL is required")
	}
	if cfg.AuthzClientID == "" {
		return nil, fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}
	if cfg.UnlockSecret == "" {
		return nil, fmt.Errorf("UNLOCK_SECRET is required")
	}
	if cfg.AutosaveWindow <= 0 {
		return nil, fmt.Errorf("AUTOSAVE_WINDOW must be positive")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration reads a Go duration string ("2s", "15m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
