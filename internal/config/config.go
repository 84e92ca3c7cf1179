package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	OllamaBaseURL    string
	OllamaModel      string
	EmbeddingModel   string
	ExtractorBaseURL string
	DBPath           string
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int
	APIPort          string
	LogLevel         slog.Level
	LogFormat        string

	// RelevanceCeiling is the absolute cosine-distance ceiling: when even the
	// best match is farther than this, the query is treated as having no
	// relevant results.
	RelevanceCeiling float64
	// RelevanceBand is the tolerance above the best match's distance within
	// which other results are still returned.
	RelevanceBand float64
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a project-root .env (next to go.mod)
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		OllamaBaseURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "qwen2.5:3b"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		ExtractorBaseURL: getEnv("EXTRACTOR_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/mindvault.db"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "mindvault_memories"),
		APIPort:          getEnv("API_PORT", "8000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	var err error
	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	// Must match the output dimension of the embedding model. If it changes,
	// the Qdrant collection has to be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "768")
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	cfg.RelevanceCeiling, err = parseFloat("RELEVANCE_CEILING", 1.0)
	if err != nil {
		return nil, err
	}
	cfg.RelevanceBand, err = parseFloat("RELEVANCE_BAND", 0.15)
	if err != nil {
		return nil, err
	}
	if cfg.RelevanceCeiling <= 0 {
		return nil, fmt.Errorf("RELEVANCE_CEILING must be greater than 0")
	}
	if cfg.RelevanceBand < 0 {
		return nil, fmt.Errorf("RELEVANCE_BAND must not be negative")
	}

	// Create the data directory for the SQLite file if needed
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return value, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", raw)
	}
}
