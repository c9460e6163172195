package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// fakeRedis is an in-memory RedisClient.
type fakeRedis struct {
	data    map[string]string
	pingErr error
	getErr  error
	setErr  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	}
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeRedis) Close() error                   { return nil }

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	c := NewEmbeddingCache(newFakeRedis(), logger.Default(), DefaultCacheConfig())
	ctx := context.Background()

	_, ok := c.Get(ctx, "how do I reset my password?")
	assert.False(t, ok)

	embedding := []float32{0.25, -1.5, 3.75}
	c.Set(ctx, "how do I reset my password?", embedding)

	got, ok := c.Get(ctx, "how do I reset my password?")
	require.True(t, ok)
	assert.Equal(t, embedding, got)

	metrics := c.Metrics()
	assert.Equal(t, uint64(1), metrics.Hits)
	assert.Equal(t, uint64(1), metrics.Misses)
}

func TestEmbeddingCacheDistinctQueries(t *testing.T) {
	c := NewEmbeddingCache(newFakeRedis(), logger.Default(), DefaultCacheConfig())
	ctx := context.Background()

	c.Set(ctx, "query a", []float32{1})

	_, ok := c.Get(ctx, "query b")
	assert.False(t, ok)
}

func TestEmbeddingCacheDisabledWithoutClient(t *testing.T) {
	c := NewEmbeddingCache(nil, logger.Default(), DefaultCacheConfig())

	assert.False(t, c.IsHealthy())
	_, ok := c.Get(context.Background(), "anything")
	assert.False(t, ok)
	// Set must be a no-op, not a panic.
	c.Set(context.Background(), "anything", []float32{1})
}

func TestEmbeddingCacheDisabledWhenPingFails(t *testing.T) {
	client := newFakeRedis()
	client.pingErr = errors.New("connection refused")

	c := NewEmbeddingCache(client, logger.Default(), DefaultCacheConfig())

	assert.False(t, c.IsHealthy())
}

func TestEmbeddingCacheSwallowsSetErrors(t *testing.T) {
	client := newFakeRedis()
	client.setErr = errors.New("redis down")

	c := NewEmbeddingCache(client, logger.Default(), DefaultCacheConfig())
	c.Set(context.Background(), "query", []float32{1, 2})

	assert.Equal(t, uint64(1), c.Metrics().Errors)
}

func TestDecodeEmbeddingRejectsBadLength(t *testing.T) {
	_, err := decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEncodeDecodeEmbedding(t *testing.T) {
	in := []float32{0, -0.001, 42.5, 1e10}
	out, err := decodeEmbedding(encodeEmbedding(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
