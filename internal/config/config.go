package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	Domain         string // Base URL of the file API, used by the capture publisher and for media URLs
	AllowedTimeout int    // Maximum duration of one capture run in seconds
	PublishTimeout int    // HTTP timeout of the publish call in seconds
	DatabasePath   string
	MediaRoot      string
	MediaBackend   string // "local" or "s3"
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	CascadeDir     string
	StaticDir      string
	PageSize       int
	LogDirectory   string
	LogLevel       string
}

// Load reads configuration from the environment. Values from a .env file in the
// working directory are applied first but never override real env vars.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnvAsInt("PORT", 8080),
		Domain:         strings.TrimRight(getEnv("DOMAIN", "http://localhost:8080"), "/"),
		AllowedTimeout: getEnvAsInt("ALLOWED_TIMEOUT", 30),
		PublishTimeout: getEnvAsInt("PUBLISH_TIMEOUT", 30),
		DatabasePath:   getEnv("DB_PATH", filepath.Join(".", "data", "files.db")),
		MediaRoot:      getEnv("MEDIA_ROOT", filepath.Join(".", "media")),
		MediaBackend:   strings.ToLower(getEnv("MEDIA_BACKEND", "local")),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		CascadeDir:     getEnv("CASCADE_DIR", filepath.Join(".", "detection_cascades")),
		StaticDir:      getEnv("STATIC_DIR", filepath.Join(".", "static")),
		PageSize:       getEnvAsInt("PAGE_SIZE", 10),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}
