package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                  string
	Origin                string
	Environment           string
	JWTSecret             string
	Database              DatabaseConfig
	Gateway               GatewayConfig
	RedisURL              string
	AsynqConcurrency      int
	AutoSaveDelayMillis   int
	GatewaySendRatePerSec int
	JWTExpirationMinutes  int
	AppURL                string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// GatewayConfig holds WhatsApp Business gateway connection details
type GatewayConfig struct {
	BaseURL   string
	APIToken  string
	TenantKey string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "caredesk"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	// Load WhatsApp gateway configuration
	gatewayConfig := GatewayConfig{
		BaseURL:   getEnv("WA_GATEWAY_URL", "http://localhost:8000"),
		APIToken:  getEnv("WA_GATEWAY_TOKEN", ""),
		TenantKey: getEnv("WA_GATEWAY_TENANT_KEY", ""),
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	asynqConcurrency, err := strconv.Atoi(getEnv("ASYNQ_CONCURRENCY", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid ASYNQ_CONCURRENCY: %w", err)
	}

	autoSaveDelay, err := strconv.Atoi(getEnv("CANVAS_AUTOSAVE_DELAY_MS", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CANVAS_AUTOSAVE_DELAY_MS: %w", err)
	}

	sendRate, err := strconv.Atoi(getEnv("WA_SEND_RATE_PER_SEC", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid WA_SEND_RATE_PER_SEC: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                  getEnv("PORT", "3001"),
		Origin:                getEnv("ORIGIN", "http://localhost:4200"),
		Environment:           getEnv("APP_ENV", "development"),
		JWTSecret:             getEnv("JWT_SECRET", "default_jwt_secret"),
		Database:              dbConfig,
		Gateway:               gatewayConfig,
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AsynqConcurrency:      asynqConcurrency,
		AutoSaveDelayMillis:   autoSaveDelay,
		GatewaySendRatePerSec: sendRate,
		JWTExpirationMinutes:  jwtExpMinutes,
		AppURL:                getEnv("APP_URL", "http://localhost:3001"),
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
