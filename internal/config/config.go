package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"invoicesnap/internal/logger"
)

// Recognition backends
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderDocumentAI = "documentai"
)

type Config struct {
	// Storage
	DatabasePath string

	// Recognition
	Recognizer         string
	GeminiModel        string
	OpenAIModel        string
	OpenAITemperature  float32
	RecognitionTimeout time.Duration

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		DatabasePath:          getEnv("INVOICESNAP_DB", defaultDatabasePath()),
		Recognizer:            strings.ToLower(getEnv("RECOGNIZER", ProviderGemini)),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature:     parseFloatEnv("OPENAI_TEMPERATURE", 0.1),
		RecognitionTimeout:    time.Duration(parseIntEnv("RECOGNITION_TIMEOUT", 120)) * time.Second,
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Invoices"),
		LogLevel:              getEnv("LOG_LEVEL", "warn"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("INVOICESNAP_DB is required")
	}
	if c.RecognitionTimeout <= 0 {
		return fmt.Errorf("RECOGNITION_TIMEOUT must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "invoicesnap.db"
	}
	return filepath.Join(home, ".invoicesnap", "invoicesnap.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
