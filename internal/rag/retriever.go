// Package rag implements grounded question answering: similarity retrieval,
// prompt assembly and chat orchestration over embedded document chunks.
package rag

import (
	"context"

	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// SimilaritySearcher runs vector similarity search over persisted chunks.
type SimilaritySearcher interface {
	SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) ([]storage.RetrievedChunk, error)
}

// RetrieverConfig holds retrieval tuning parameters.
type RetrieverConfig struct {
	TopK                int
	SimilarityThreshold float64
}

// DefaultRetrieverConfig returns the default retrieval settings.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:                5,
		SimilarityThreshold: 0.7,
	}
}

// Retriever finds the chunks most relevant to a query embedding.
type Retriever struct {
	searcher SimilaritySearcher
	config   RetrieverConfig
	logger   *logger.Logger
}

// NewRetriever creates a retriever. Zero config values fall back to defaults.
func NewRetriever(searcher SimilaritySearcher, config RetrieverConfig, log *logger.Logger) *Retriever {
	def := DefaultRetrieverConfig()
	if config.TopK <= 0 {
		config.TopK = def.TopK
	}
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = def.SimilarityThreshold
	}

	return &Retriever{
		searcher: searcher,
		config:   config,
		logger:   log.WithComponent("retriever"),
	}
}

// Retrieve returns up to TopK chunks above the similarity threshold, most
// similar first. An empty result means no indexed content matched; that is
// a normal outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32) ([]storage.RetrievedChunk, error) {
	chunks, err := r.searcher.SearchSimilar(ctx, queryEmbedding, r.config.TopK, r.config.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("similarity search completed",
		"results", len(chunks),
		"top_k", r.config.TopK,
		"threshold", r.config.SimilarityThreshold,
	)

	return chunks, nil
}
