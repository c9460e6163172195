// Package embedder provides embedding generation with batching, retry and
// dimension validation on top of an external embedding provider.
package embedder

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// Provider is the raw embedding provider: one order-preserving call per batch.
type Provider interface {
	// Embed returns one vector per input text, in the same order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed embedding dimension.
	Dimension() int

	// ModelName returns the model name.
	ModelName() string
}

// Embedder is the interface consumed by retrieval and ingestion.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config holds configuration for the gateway.
type Config struct {
	MaxAttempts    int           // total attempts per provider call (default: 3)
	RetryDelay     time.Duration // initial backoff, doubled per attempt (default: 1s)
	RateLimitRPS   int           // provider requests per second (default: 50)
	RequestTimeout time.Duration // timeout per provider call (default: 60s)
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		RetryDelay:     time.Second,
		RateLimitRPS:   50,
		RequestTimeout: 60 * time.Second,
	}
}

// Gateway wraps a Provider with input validation, automatic retry with
// exponential backoff, and vector dimension validation. Retry lives here and
// only here; callers treat gateway failures as terminal.
type Gateway struct {
	provider    Provider
	config      Config
	rateLimiter *rate.Limiter
	log         *logger.Logger
}

// NewGateway creates a gateway around the given provider.
func NewGateway(provider Provider, cfg Config, log *logger.Logger) *Gateway {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = def.RateLimitRPS
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if log == nil {
		log = logger.Default()
	}

	return &Gateway{
		provider:    provider,
		config:      cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitRPS),
		log:         log.WithComponent("embedder"),
	}
}

// Dimension returns the provider's fixed embedding dimension.
func (g *Gateway) Dimension() int {
	return g.provider.Dimension()
}

// Embed generates an embedding for a single text. Blank input is rejected
// before any provider call.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "embedding text must not be empty")
	}

	vectors, err := g.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Blank entries are
// dropped before the provider call; the result holds exactly one vector per
// remaining text, in the same relative order. An all-blank or empty batch
// returns an empty result without calling the provider.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	valid := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			valid = append(valid, t)
		}
	}

	if len(valid) == 0 {
		g.log.Warn("no valid texts in embedding batch", "input_count", len(texts))
		return [][]float32{}, nil
	}

	return g.embedWithRetry(ctx, valid)
}

// embedWithRetry performs the provider call with exponential backoff and
// validates the response shape. Any violation after the final attempt is a
// terminal EmbeddingFailure.
func (g *Gateway) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := g.config.RetryDelay

	for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			g.log.Debug("retrying embedding request", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.KindEmbeddingFailure, "embedding cancelled", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := g.rateLimiter.Wait(ctx); err != nil {
			return nil, apperr.Wrap(apperr.KindEmbeddingFailure, "rate limiter wait failed", err)
		}

		vectors, err := g.doEmbed(ctx, texts)
		if err == nil {
			return vectors, nil
		}

		lastErr = err
		g.log.WithError(err).Warn("embedding request failed", "attempt", attempt+1)
	}

	return nil, apperr.Wrap(apperr.KindEmbeddingFailure, "all embedding attempts failed", lastErr)
}

// doEmbed performs a single provider call and validates the result.
func (g *Gateway) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	vectors, err := g.provider.Embed(reqCtx, texts)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, apperr.Newf(apperr.KindEmbeddingFailure,
			"got %d embeddings for %d texts", len(vectors), len(texts))
	}

	expected := g.provider.Dimension()
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, apperr.Newf(apperr.KindEmbeddingFailure, "empty embedding at index %d", i)
		}
		if len(v) != expected {
			return nil, apperr.Newf(apperr.KindEmbeddingFailure,
				"embedding at index %d has dimension %d, expected %d", i, len(v), expected)
		}
	}

	return vectors, nil
}
