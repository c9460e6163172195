// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Chunking  ChunkingConfig
	Retrieval RetrievalConfig
	Upload    UploadConfig
	Ingest    IngestConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	Environment     string
	ShutdownTimeout int
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
}

// LLMConfig holds embedding and generation provider configuration.
type LLMConfig struct {
	Provider           string
	OpenAIKey          string
	AnthropicKey       string
	Model              string
	EmbeddingModel     string
	EmbeddingDimension int
	MaxTokens          int
	Temperature        float64
}

// ChunkingConfig holds text chunking parameters.
type ChunkingConfig struct {
	ChunkSizeTokens int
	OverlapTokens   int
	MinChunkTokens  int
	TokensPerChar   int
}

// RetrievalConfig holds vector retrieval parameters.
type RetrievalConfig struct {
	TopK                int
	SimilarityThreshold float64
}

// UploadConfig holds document upload limits.
type UploadConfig struct {
	MaxFileSizeMB     int
	AllowedMediaTypes []string
}

// IngestConfig holds ingestion worker pool sizing.
type IngestConfig struct {
	Workers       int
	QueueCapacity int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("PORT", 8080),
			Environment:     getEnv("ENVIRONMENT", "development"),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "helpdesk"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "helpdesk-documents"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
		},
		LLM: LLMConfig{
			Provider:           getEnv("LLM_PROVIDER", "openai"),
			OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:       getEnv("ANTHROPIC_API_KEY", ""),
			Model:              getEnv("LLM_MODEL", "gpt-4o"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 1536),
			MaxTokens:          getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Temperature:        getEnvAsFloat("LLM_TEMPERATURE", 0.3),
		},
		Chunking: ChunkingConfig{
			ChunkSizeTokens: getEnvAsInt("CHUNK_SIZE_TOKENS", 700),
			OverlapTokens:   getEnvAsInt("CHUNK_OVERLAP_TOKENS", 150),
			MinChunkTokens:  getEnvAsInt("CHUNK_MIN_TOKENS", 400),
			TokensPerChar:   getEnvAsInt("CHUNK_TOKENS_PER_CHAR", 4),
		},
		Retrieval: RetrievalConfig{
			TopK:                getEnvAsInt("RETRIEVAL_TOP_K", 5),
			SimilarityThreshold: getEnvAsFloat("RETRIEVAL_SIMILARITY_THRESHOLD", 0.7),
		},
		Upload: UploadConfig{
			MaxFileSizeMB: getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", 50),
			AllowedMediaTypes: getEnvAsSlice("UPLOAD_ALLOWED_MEDIA_TYPES",
				[]string{"application/pdf", "text/plain", "text/markdown"}),
		},
		Ingest: IngestConfig{
			Workers:       getEnvAsInt("INGEST_WORKERS", 5),
			QueueCapacity: getEnvAsInt("INGEST_QUEUE_CAPACITY", 100),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "json"),
			AddSource: getEnvAsBool("LOG_ADD_SOURCE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Environment == "production" {
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set in production (embeddings)")
		}
		if c.LLM.Provider == "anthropic" && c.LLM.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY must be set when LLM_PROVIDER=anthropic")
		}
	}
	if c.Chunking.TokensPerChar <= 0 {
		return fmt.Errorf("CHUNK_TOKENS_PER_CHAR must be positive")
	}
	if c.LLM.EmbeddingDimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive")
	}
	return nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (c *UploadConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// MediaTypeAllowed reports whether the declared media type is on the allow-list.
func (c *UploadConfig) MediaTypeAllowed(mediaType string) bool {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	// Strip parameters such as "; charset=utf-8".
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	for _, allowed := range c.AllowedMediaTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
