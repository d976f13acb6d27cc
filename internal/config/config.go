package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the binaries need, loaded from the environment
// with an optional .env file for local development.
type Config struct {
	Server    ServerConfig
	Warehouse WarehouseConfig
	Extractor ExtractorConfig
	Archive   ArchiveConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type WarehouseConfig struct {
	ProjectID string
	DatasetID string
}

type ExtractorConfig struct {
	Model string
}

type ArchiveConfig struct {
	// Bucket enables GCS archiving of uploaded receipts when non-empty.
	Bucket string
}

// Load reads configuration from the environment. A .env file in the current
// directory or the project root is honored when present; in containers the
// variables come straight from the environment.
func Load() (*Config, error) {
	for _, envFile := range []string{".env", "../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "120"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Warehouse: WarehouseConfig{
			ProjectID: getEnv("GCP_PROJECT", ""),
			DatasetID: getEnv("BQ_DATASET", "ledger"),
		},
		Extractor: ExtractorConfig{
			Model: getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Archive: ArchiveConfig{
			Bucket: getEnv("GCS_BUCKET", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Warehouse.ProjectID == "" {
		return nil, fmt.Errorf("config: GCP_PROJECT is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
