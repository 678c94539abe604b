package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers     []string
	KafkaGroupID     string
	ReviewEventTopic string
	ChaseMoveTopic   string

	// External NLP provider
	NlpProviderBaseURL      string
	NlpProviderTokenURL     string
	NlpProviderClientID     string
	NlpProviderClientSecret string
	NlpProviderTimeout      time.Duration

	// Workflow
	WorkflowCatalogPath string

	// Annotation sync
	AnnotationLockTTL time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "medreview"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "medreview123"),
		PostgresDB:       getEnv("POSTGRES_DB", "medreview"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "chase-review-service"),
		ReviewEventTopic: getEnv("REVIEW_EVENT_TOPIC", "chase-review-events"),
		ChaseMoveTopic:   getEnv("CHASE_MOVE_TOPIC", "chase-workflow-events"),

		NlpProviderBaseURL:      getEnv("NLP_PROVIDER_BASE_URL", ""),
		NlpProviderTokenURL:     getEnv("NLP_PROVIDER_TOKEN_URL", ""),
		NlpProviderClientID:     getEnv("NLP_PROVIDER_CLIENT_ID", ""),
		NlpProviderClientSecret: getEnv("NLP_PROVIDER_CLIENT_SECRET", ""),
		NlpProviderTimeout:      getDuration("NLP_PROVIDER_TIMEOUT", 15*time.Second),

		WorkflowCatalogPath: getEnv("WORKFLOW_CATALOG_PATH", ""),

		AnnotationLockTTL: getDuration("ANNOTATION_LOCK_TTL", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
