// Command helpdesk runs the document Q&A service: upload and ingestion of
// documents, vector retrieval and grounded chat over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/soares-ari/helpdesk-ai/internal/api"
	"github.com/soares-ari/helpdesk-ai/internal/chunker"
	"github.com/soares-ari/helpdesk-ai/internal/config"
	"github.com/soares-ari/helpdesk-ai/internal/embedder"
	"github.com/soares-ari/helpdesk-ai/internal/extractor"
	"github.com/soares-ari/helpdesk-ai/internal/ingest"
	"github.com/soares-ari/helpdesk-ai/internal/llm"
	"github.com/soares-ari/helpdesk-ai/internal/rag"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
	"github.com/soares-ari/helpdesk-ai/pkg/shutdown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})
	log.SetDefault()

	log.Info("starting helpdesk-ai",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
	)

	handler := shutdown.New(log.Logger, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)

	// Storage
	db, err := storage.NewPostgresDB(cfg.Database.DSN(), log)
	if err != nil {
		return err
	}
	handler.Register("postgres", func(ctx context.Context) error {
		return db.Close()
	})

	documents := storage.NewDocumentStore(db)
	chunks := storage.NewChunkStore(db, cfg.LLM.EmbeddingDimension)
	conversations := storage.NewConversationStore(db)

	objects, err := storage.NewMinIOStorage(storage.MinIOConfig{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		BucketName:      cfg.Storage.BucketName,
		UseSSL:          cfg.Storage.UseSSL,
		Region:          cfg.Storage.Region,
	})
	if err != nil {
		return err
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := objects.InitBucket(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	// Query embedding cache, optional
	var cache *storage.EmbeddingCache
	if cfg.Redis.Enabled {
		redisClient, err := storage.NewRedisClient(storage.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.WithError(err).Warn("redis unavailable, continuing without embedding cache")
		} else {
			cache = storage.NewEmbeddingCache(redisClient, log, storage.DefaultCacheConfig())
			handler.Register("redis", func(ctx context.Context) error {
				return redisClient.Close()
			})
		}
	}

	// Embeddings and generation
	provider, err := embedder.NewOpenAIProvider(cfg.LLM.OpenAIKey, cfg.LLM.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	gateway := embedder.NewGateway(provider, embedder.DefaultConfig(), log)

	generatorKey := cfg.LLM.OpenAIKey
	if cfg.LLM.Provider == "anthropic" {
		generatorKey = cfg.LLM.AnthropicKey
	}
	generator, err := llm.NewGenerator(llm.GeneratorConfig{
		Provider:    cfg.LLM.Provider,
		APIKey:      generatorKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, log)
	if err != nil {
		return err
	}

	// Ingestion
	extractors := extractor.NewRegistry()
	pool := ingest.NewPool(ingest.PoolConfig{
		Workers:       cfg.Ingest.Workers,
		QueueCapacity: cfg.Ingest.QueueCapacity,
	}, log)
	handler.Register("ingest_pool", func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		grace := 30 * time.Second
		if ok {
			grace = time.Until(deadline)
		}
		pool.Shutdown(grace)
		return nil
	})

	pipeline := ingest.NewPipeline(documents, chunks, chunker.New(chunker.Config{
		ChunkSizeTokens: cfg.Chunking.ChunkSizeTokens,
		OverlapTokens:   cfg.Chunking.OverlapTokens,
		MinChunkTokens:  cfg.Chunking.MinChunkTokens,
		TokensPerChar:   cfg.Chunking.TokensPerChar,
	}), gateway, extractors, pool, log)

	// Retrieval and chat
	retriever := rag.NewRetriever(chunks, rag.RetrieverConfig{
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
	}, log)

	var embeddingCache rag.EmbeddingCacher
	if cache != nil {
		embeddingCache = cache
	}
	chat := rag.NewChatService(conversations, gateway, retriever, generator, embeddingCache, log)

	// HTTP
	routerCfg := api.DefaultRouterConfig()
	routerCfg.Upload = cfg.Upload
	router := api.NewRouter(api.Dependencies{
		Logger:        log,
		DB:            db,
		Documents:     documents,
		Conversations: conversations,
		ObjectStorage: objects,
		Ingest:        pipeline,
		Extractor:     extractors,
		ChatService:   chat,
	}, routerCfg)

	server := api.NewServer(router, api.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}, log)
	handler.Register("http_server", server.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	done := make(chan struct{})
	go func() {
		handler.Wait()
		close(done)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-done:
	}

	log.Info("shutdown complete")
	return nil
}
