package storage

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// CacheConfig holds settings for the query embedding cache.
type CacheConfig struct {
	Prefix       string
	EmbeddingTTL time.Duration
}

// DefaultCacheConfig returns the default cache settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Prefix:       "helpdesk",
		EmbeddingTTL: 1 * time.Hour,
	}
}

// CacheMetrics tracks embedding cache hit/miss statistics.
type CacheMetrics struct {
	Hits   uint64
	Misses uint64
	Errors uint64
}

// EmbeddingCache caches query embeddings in Redis so repeated questions skip
// the embedding provider. The cache degrades gracefully: every failure is a
// miss, never an error for the caller.
type EmbeddingCache struct {
	client  RedisClient
	config  CacheConfig
	logger  *logger.Logger
	metrics CacheMetrics
	healthy bool
}

// NewEmbeddingCache creates a cache backed by the given Redis client. A nil
// client yields a permanently disabled cache.
func NewEmbeddingCache(client RedisClient, log *logger.Logger, config CacheConfig) *EmbeddingCache {
	c := &EmbeddingCache{
		client:  client,
		config:  config,
		logger:  log.WithComponent("embedding_cache"),
		healthy: client != nil,
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			c.logger.WithError(err).Warn("redis unavailable, embedding cache disabled")
			c.healthy = false
		}
	}

	return c
}

// IsHealthy reports whether the cache is operational.
func (c *EmbeddingCache) IsHealthy() bool {
	return c.healthy && c.client != nil
}

// Metrics returns a snapshot of the cache counters.
func (c *EmbeddingCache) Metrics() CacheMetrics {
	return CacheMetrics{
		Hits:   atomic.LoadUint64(&c.metrics.Hits),
		Misses: atomic.LoadUint64(&c.metrics.Misses),
		Errors: atomic.LoadUint64(&c.metrics.Errors),
	}
}

// Get returns the cached embedding for a query, if present.
func (c *EmbeddingCache) Get(ctx context.Context, query string) ([]float32, bool) {
	if !c.IsHealthy() {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(query))
	if err != nil {
		atomic.AddUint64(&c.metrics.Misses, 1)
		return nil, false
	}

	embedding, err := decodeEmbedding([]byte(data))
	if err != nil {
		c.logger.WithError(err).Error("failed to decode cached embedding")
		atomic.AddUint64(&c.metrics.Errors, 1)
		return nil, false
	}

	atomic.AddUint64(&c.metrics.Hits, 1)
	return embedding, true
}

// Set stores an embedding for a query. Failures are logged and swallowed.
func (c *EmbeddingCache) Set(ctx context.Context, query string, embedding []float32) {
	if !c.IsHealthy() {
		return
	}

	if err := c.client.Set(ctx, c.key(query), encodeEmbedding(embedding), c.config.EmbeddingTTL); err != nil {
		c.logger.WithError(err).Error("failed to cache embedding")
		atomic.AddUint64(&c.metrics.Errors, 1)
	}
}

func (c *EmbeddingCache) key(query string) string {
	h := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s:embed:%s", c.config.Prefix, hex.EncodeToString(h[:16]))
}

// encodeEmbedding converts a float32 slice to bytes.
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding converts bytes back to a float32 slice.
func decodeEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding data length: %d", len(data))
	}

	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return embedding, nil
}
