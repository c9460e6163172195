// Package llm provides a unified interface for answer generation across
// LLM providers.
package llm

import (
	"context"
)

// Generator produces an answer from a system prompt and a user prompt that
// already carries the retrieved document context.
type Generator interface {
	// Complete returns the model's answer text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// Model returns the model name being used.
	Model() string
}

// GeneratorConfig holds provider selection and tuning parameters.
type GeneratorConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// DefaultGeneratorConfig returns the default generation settings.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Provider:    "openai",
		Model:       "gpt-4o",
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}
