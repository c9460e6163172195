package llm

import (
	"fmt"
	"strings"

	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// NewGenerator creates an answer generator for the configured provider.
func NewGenerator(cfg GeneratorConfig, log *logger.Logger) (Generator, error) {
	provider := strings.ToLower(cfg.Provider)

	log.Info("creating LLM generator",
		"provider", provider,
		"model", cfg.Model,
	)

	switch provider {
	case "openai":
		return NewOpenAIGenerator(cfg, log)
	case "anthropic":
		return NewAnthropicGenerator(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
