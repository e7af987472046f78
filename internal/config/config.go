package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Search     SearchConfig
	Ranking    RankingConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
	Chat       ChatConfig
	Store      StoreConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// SearchConfig holds search-related configuration
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightText    float64
	WeightPrice   float64
	WeightRecency float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":true}})
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string // JSON string for extra_body (e.g., {"truncate":"NONE"})
	EmbeddingEnabled    bool
	BatchSize           int
	Timeout             int // seconds
	MaxResponseBytes    int64
	Enabled             bool
}

// ChatConfig holds the conversational filter extraction settings
type ChatConfig struct {
	WindowSize   int // prior messages sent with each turn
	FieldMaxLen  int // rune cap for text filter fields
	MaxAmenities int
	SystemPrompt string // optional override of the built-in prompt
}

// StoreConfig holds the conversation transcript store configuration
type StoreConfig struct {
	Path        string // bbolt file; empty disables the store
	MaxMessages int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	dsn := getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", "")))

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                dsn,
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "rentals"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			Enabled:            getEnvAsBool("PG_ENABLED", dsn != ""),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Search: SearchConfig{
			DefaultLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 100),
		},
		Ranking: RankingConfig{
			WeightText:    getEnvAsFloat("RANK_WEIGHT_TEXT", 0.5),
			WeightPrice:   getEnvAsFloat("RANK_WEIGHT_PRICE", 0.3),
			WeightRecency: getEnvAsFloat("RANK_WEIGHT_RECENCY", 0.2),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4.1-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0.7),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			EmbeddingEnabled:    getEnvAsBool("OPENAI_EMBEDDING_ENABLED", false),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			MaxResponseBytes:    int64(getEnvAsInt("OPENAI_MAX_RESPONSE_BYTES", 1<<20)),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Chat: ChatConfig{
			WindowSize:   getEnvAsInt("CHAT_WINDOW_SIZE", 10),
			FieldMaxLen:  getEnvAsInt("CHAT_FIELD_MAX_LEN", 200),
			MaxAmenities: getEnvAsInt("CHAT_MAX_AMENITIES", 20),
			SystemPrompt: getEnv("CHAT_SYSTEM_PROMPT", ""),
		},
		Store: StoreConfig{
			Path:        getEnv("STORE_PATH", ""),
			MaxMessages: getEnvAsInt("STORE_MAX_MESSAGES", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that would break the chat engine's bounds
func (c *Config) Validate() error {
	if c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must be positive, got %d", c.OpenAI.Timeout)
	}
	if c.OpenAI.MaxResponseBytes <= 0 {
		return fmt.Errorf("OPENAI_MAX_RESPONSE_BYTES must be positive, got %d", c.OpenAI.MaxResponseBytes)
	}
	if c.Chat.WindowSize < 0 {
		return fmt.Errorf("CHAT_WINDOW_SIZE must not be negative, got %d", c.Chat.WindowSize)
	}
	if c.Chat.FieldMaxLen <= 0 {
		return fmt.Errorf("CHAT_FIELD_MAX_LEN must be positive, got %d", c.Chat.FieldMaxLen)
	}
	if c.Chat.MaxAmenities <= 0 {
		return fmt.Errorf("CHAT_MAX_AMENITIES must be positive, got %d", c.Chat.MaxAmenities)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("SEARCH_MAX_LIMIT (%d) is below SEARCH_DEFAULT_LIMIT (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer env value, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("invalid float env value, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid boolean env value, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}
