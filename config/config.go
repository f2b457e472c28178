package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the plant analysis service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Inference configuration
	InferenceAPIKey   string
	InferenceModel    string
	InferenceEndpoint string
	InferenceTimeout  time.Duration

	// Object storage configuration
	MinioEndpoint  string
	MinioRegion    string
	MinioBucket    string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	// Auth configuration
	JWTSecret string

	// RabbitMQ configuration (optional cross-instance change notification)
	AMQPURL          string
	AMQPExchange     string
	AMQPRoutingKey   string
	AMQPHistoryQueue string

	// Redis configuration (optional history list cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "florintel"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Inference defaults
		InferenceAPIKey:   getEnv("INFERENCE_API_KEY", ""),
		InferenceModel:    getEnv("INFERENCE_MODEL", "gpt-4o"),
		InferenceEndpoint: getEnv("INFERENCE_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		InferenceTimeout:  getDurationEnv("INFERENCE_TIMEOUT", 90*time.Second),

		// Object storage defaults
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioBucket:    getEnv("MINIO_BUCKET", "plant-images"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getBoolEnv("MINIO_USE_SSL", false),

		// Auth defaults
		JWTSecret: getEnv("JWT_SECRET", ""),

		// RabbitMQ defaults (empty URL disables publishing)
		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "florintel"),
		AMQPRoutingKey:   getEnv("AMQP_ROUTING_KEY", "history.changed"),
		AMQPHistoryQueue: getEnv("AMQP_HISTORY_QUEUE", "florintel-history"),

		// Redis defaults (empty address disables caching)
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		CacheTTL:      getDurationEnv("CACHE_TTL", 5*time.Minute),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
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
