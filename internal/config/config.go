package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration for the gateway and the ingest worker.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Document store
	DBURL string `env:"DB_URL"`

	// Queue
	QueueURL     string `env:"QUEUE_URL"`
	QueueSubject string `env:"QUEUE_SUBJECT" envDefault:"ingest.documents"`

	// Object storage
	Bucket       string `env:"BUCKET"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKey string `env:"AWS_ACCESS_KEY"`
	AWSSecretKey string `env:"AWS_SECRET_KEY"`

	// Conversation memory
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Embeddings
	OpenAIKey        string  `env:"OPENAI_API_KEY"`
	EmbeddingModel   string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbedBatchSize   int     `env:"EMBED_BATCH_SIZE" envDefault:"96" validate:"min=1"`
	EmbedMaxAttempts int     `env:"EMBED_MAX_ATTEMPTS" envDefault:"3" validate:"min=1"`
	EmbedRateLimit   float64 `env:"EMBED_RATE_LIMIT" envDefault:"2"` // requests per second

	// Chunking for plain-text documents
	ChunkMaxTokens int `env:"CHUNK_MAX_TOKENS" envDefault:"400" validate:"min=1"`
	ChunkOverlap   int `env:"CHUNK_OVERLAP" envDefault:"80" validate:"min=0"`
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
