package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Gemini
	GeminiAPIKey  string // empty disables AI features
	GeminiModel   string
	GeminiBaseURL string

	// AI client resilience
	AIMaxAttempts     int // attempts per call before giving up (default: 3)
	AIRetryBaseMillis int // first backoff delay, doubles each retry (default: 1000)

	// Suggestions
	SuggestionCount    int // recommendations per kind (default: 5)
	DebounceMillis     int // autocomplete quiet period (default: 300)
	PicksRetentionDays int // days to keep daily picks (default: 7)

	// Server
	ServerPort string

	// Paths
	BlocklistFile string // $CONFIG_DIR/blocklist.txt
	DatabaseFile  string // $CONFIG_DIR/watchshelf.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	viper.SetDefault("AI_MAX_ATTEMPTS", 3)
	viper.SetDefault("AI_RETRY_BASE_MILLIS", 1000)
	viper.SetDefault("SUGGESTION_COUNT", 5)
	viper.SetDefault("DEBOUNCE_MILLIS", 300)
	viper.SetDefault("PICKS_RETENTION_DAYS", 7)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "watchshelf")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Gemini
		GeminiAPIKey:  viper.GetString("GEMINI_API_KEY"),
		GeminiModel:   viper.GetString("GEMINI_MODEL"),
		GeminiBaseURL: viper.GetString("GEMINI_BASE_URL"),

		// AI client resilience
		AIMaxAttempts:     viper.GetInt("AI_MAX_ATTEMPTS"),
		AIRetryBaseMillis: viper.GetInt("AI_RETRY_BASE_MILLIS"),

		// Suggestions
		SuggestionCount:    viper.GetInt("SUGGESTION_COUNT"),
		DebounceMillis:     viper.GetInt("DEBOUNCE_MILLIS"),
		PicksRetentionDays: viper.GetInt("PICKS_RETENTION_DAYS"),

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		BlocklistFile: filepath.Join(configDir, "blocklist.txt"),
		DatabaseFile:  filepath.Join(configDir, "watchshelf.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate bounds; GEMINI_API_KEY is deliberately optional, the AI
	// client runs disabled without it
	if config.AIMaxAttempts < 1 {
		return nil, fmt.Errorf("AI_MAX_ATTEMPTS must be at least 1")
	}
	if config.AIRetryBaseMillis < 1 {
		return nil, fmt.Errorf("AI_RETRY_BASE_MILLIS must be at least 1")
	}
	if config.SuggestionCount < 1 {
		return nil, fmt.Errorf("SUGGESTION_COUNT must be at least 1")
	}

	return config, nil
}
