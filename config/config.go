package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DefaultArtifactStoreURL is the public bucket serving latest OSS-Fuzz builds.
const DefaultArtifactStoreURL = "https://storage.googleapis.com/clusterfuzz-builds"

type AppConfig struct {
	OutDir           string        // directory holding candidate build artifacts
	ProjectName      string        // optional, empty when no tracked project
	FuzzDuration     time.Duration // wall-clock budget per target
	ArtifactStoreURL string
	ManifestPath     string        // optional fuzzgate.yaml target manifest
	AttemptTimeout   time.Duration // bound on a single reproduction attempt
	LogLevel         string
	ServiceName      string

	// optional sinks, components degrade to log-only when unset
	DatabaseURL string
	RabbitMQURL string
	RedisURL    string
}

func LoadConfig() *AppConfig {
	// use a temporary logger for now
	logger := zap.NewExample().Named("config")

	godotenv.Load()

	config := &AppConfig{
		OutDir:           os.Getenv("OUT_DIR"),
		ProjectName:      os.Getenv("PROJECT_NAME"),
		FuzzDuration:     time.Duration(parseInt(os.Getenv("FUZZ_SECONDS"), 600)) * time.Second,
		ArtifactStoreURL: os.Getenv("ARTIFACT_STORE_URL"),
		ManifestPath:     os.Getenv("TARGET_MANIFEST"),
		AttemptTimeout:   parseDuration(os.Getenv("REPRODUCE_ATTEMPT_TIMEOUT"), 5*time.Minute),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		ServiceName:      os.Getenv("SERVICE_NAME"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RedisURL:         os.Getenv("OVERRIDE_REDIS_URL"),
	}

	if config.LogLevel == "" {
		config.LogLevel = "info" // Set default log level
	}
	if config.ArtifactStoreURL == "" {
		config.ArtifactStoreURL = DefaultArtifactStoreURL
	}
	if config.ServiceName == "" {
		config.ServiceName = "fuzzgate" // Default service name
	}

	if config.OutDir == "" {
		logger.Fatal("OUT_DIR environment variable is required")
	}
	if config.FuzzDuration <= 0 {
		logger.Fatal("FUZZ_SECONDS must be a positive number of seconds")
	}

	return config
}

func parseInt(val string, defaultVal int) int {
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func parseDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
