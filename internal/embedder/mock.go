package embedder

import (
	"context"
	"crypto/sha256"
)

// MockProvider is a deterministic in-process provider for tests and local
// development without API access.
type MockProvider struct {
	dimension int
}

// NewMockProvider creates a mock provider with the given dimension.
func NewMockProvider(dimension int) *MockProvider {
	if dimension <= 0 {
		dimension = 1536
	}
	return &MockProvider{dimension: dimension}
}

// Embed generates one deterministic vector per text from its content hash.
func (m *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		hash := sha256.Sum256([]byte(text))
		v := make([]float32, m.dimension)
		for j := 0; j < m.dimension; j++ {
			v[j] = float32(hash[j%32]) / 255.0
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimension returns the mock embedding dimension.
func (m *MockProvider) Dimension() int {
	return m.dimension
}

// ModelName returns the mock model name.
func (m *MockProvider) ModelName() string {
	return "mock-embedder"
}
