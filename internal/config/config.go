// Package config provides environment configuration for the bot.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// VK settings
	VKToken string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	DefaultLLM      string
	ModelName       string

	// Dataset settings
	DatasetPath   string
	DefaultSystem string

	// Backup settings
	BackupDir      string
	BackupKeep     int
	BackupDebounce time.Duration

	// Auth settings
	PasswordHash string
	UsersPath    string

	// Ops server
	OpsPort string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// VK
		VKToken: getEnv("VK_TOKEN", ""),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),
		ModelName:       getEnv("MODEL_NAME", "gpt-4o-mini"),

		// Dataset
		DatasetPath:   getEnv("DATASET_PATH", "dataset.json"),
		DefaultSystem: getEnv("DEFAULT_SYSTEM_PROMPT", ""),

		// Backups
		BackupDir:      getEnv("BACKUP_DIR", "backups"),
		BackupKeep:     getIntEnv("BACKUP_KEEP", 5),
		BackupDebounce: getDurationEnv("BACKUP_DEBOUNCE", 30*time.Second),

		// Auth
		PasswordHash: getEnv("PASSWORD_HASH", ""),
		UsersPath:    getEnv("USERS_PATH", "users.json"),

		// Ops
		OpsPort: getEnv("OPS_PORT", "8080"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
