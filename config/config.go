package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the RoadEye service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Auth configuration
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// Object storage configuration
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string
	PublicBaseURL  string

	// OpenAI configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// RabbitMQ configuration
	RabbitMQHost       string
	RabbitMQPort       string
	RabbitMQUser       string
	RabbitMQPassword   string
	RabbitMQExchange   string
	RabbitMQRoutingKey string

	// Report submission configuration
	MaxImagesPerReport int
	MaxImageSizeBytes  int64

	// Orphaned upload sweep configuration
	SweepSchedule string
	UploadTTL     time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "roadeye"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Auth defaults
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTokenExpiry:  getDurationEnv("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
		RefreshTokenExpiry: getDurationEnv("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour),

		// Object storage defaults
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getBoolEnv("MINIO_USE_SSL", false),
		MinioBucket:    getEnv("MINIO_BUCKET", "roadeye-reports"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:9000"),

		// OpenAI defaults
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),

		// RabbitMQ defaults
		RabbitMQHost:       getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:       getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:       getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword:   getEnv("RABBITMQ_PASSWORD", "guest"),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "roadeye"),
		RabbitMQRoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "report.events"),

		// Report submission defaults
		MaxImagesPerReport: getIntEnv("MAX_IMAGES_PER_REPORT", 5),
		MaxImageSizeBytes:  int64(getIntEnv("MAX_IMAGE_SIZE_BYTES", 10*1024*1024)),

		// Sweep defaults
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "0 * * * *"),
		UploadTTL:     getDurationEnv("UPLOAD_TTL", 24*time.Hour),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// GetAMQPURL builds the AMQP connection URL from the RabbitMQ settings
func (c *Config) GetAMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
