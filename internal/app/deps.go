package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"pdfchat/internal/blob"
	"pdfchat/internal/config"
	"pdfchat/internal/embeddings"
	"pdfchat/internal/logger"
	"pdfchat/internal/memory"
	"pdfchat/internal/queue"
	"pdfchat/internal/store"
)

// Deps bundles common runtime dependencies for the gateway service.
type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Store   store.Store
	Storage blob.Storage
	Queue   queue.Queue
	Memory  memory.Store
}

// IngestDeps bundles dependencies for the ingest worker.
type IngestDeps struct {
	Config   config.Config
	Log      *slog.Logger
	Store    store.Store
	Storage  blob.Storage
	Queue    queue.Queue
	Embedder embeddings.Embedder
}

// BuildGateway loads env, config, and the gateway's shared components.
func BuildGateway(ctx context.Context) (Deps, error) {
	cfg, log, err := buildBase("gateway")
	if err != nil {
		return Deps{}, err
	}
	st, storage, q, err := buildCore(ctx, cfg, log)
	if err != nil {
		return Deps{}, err
	}
	mem, err := memory.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize conversation memory: %w", err)
	}
	return Deps{Config: cfg, Log: log, Store: st, Storage: storage, Queue: q, Memory: mem}, nil
}

// BuildIngest loads env, config, and the ingest worker's components.
func BuildIngest(ctx context.Context) (IngestDeps, error) {
	cfg, log, err := buildBase("ingest")
	if err != nil {
		return IngestDeps{}, err
	}
	st, storage, q, err := buildCore(ctx, cfg, log)
	if err != nil {
		return IngestDeps{}, err
	}
	if cfg.OpenAIKey == "" {
		return IngestDeps{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), embeddings.Options{
		MaxBatchSize: cfg.EmbedBatchSize,
		MaxAttempts:  cfg.EmbedMaxAttempts,
		RateLimit:    cfg.EmbedRateLimit,
	})
	if err != nil {
		return IngestDeps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
	return IngestDeps{Config: cfg, Log: log, Store: st, Storage: storage, Queue: q, Embedder: embedder}, nil
}

func buildBase(service string) (config.Config, *slog.Logger, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, logger.New(cfg.LogLevel, service), nil
}

func buildCore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, blob.Storage, queue.Queue, error) {
	if cfg.DBURL == "" {
		return nil, nil, nil, fmt.Errorf("DB_URL is required")
	}
	st, err := store.NewPostgres(cfg.DBURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize Postgres: %w", err)
	}
	log.Info("using Postgres document store")

	storage, err := blob.NewS3(ctx, blob.S3Config{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
		Bucket:    cfg.Bucket,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	log.Info("using S3 object storage", "bucket", cfg.Bucket)

	if cfg.QueueURL == "" {
		return nil, nil, nil, fmt.Errorf("QUEUE_URL is required")
	}
	nc, err := nats.Connect(cfg.QueueURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS queue", "subject", cfg.QueueSubject)

	return st, storage, queue.NewNATS(log, nc), nil
}
