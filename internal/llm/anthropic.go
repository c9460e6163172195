package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// AnthropicGenerator generates answers using Anthropic's Claude models.
type AnthropicGenerator struct {
	client *anthropic.Client
	config GeneratorConfig
	logger *logger.Logger
}

// NewAnthropicGenerator creates an Anthropic answer generator.
func NewAnthropicGenerator(cfg GeneratorConfig, log *logger.Logger) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}

	return &AnthropicGenerator{
		client: &client,
		config: cfg,
		logger: log.WithComponent("anthropic_generator"),
	}, nil
}

// Complete sends a message request and returns the answer text.
func (g *AnthropicGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.config.Model),
		MaxTokens: int64(g.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if g.config.Temperature > 0 {
		params.Temperature = anthropic.Float(g.config.Temperature)
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		g.logger.WithError(err).Error("message request failed")
		return "", apperr.Wrap(apperr.KindGenerationFailure, "message request failed", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	if b.Len() == 0 {
		return "", apperr.New(apperr.KindGenerationFailure, "message response contained no text")
	}

	return b.String(), nil
}

func (g *AnthropicGenerator) Name() string  { return "anthropic" }
func (g *AnthropicGenerator) Model() string { return g.config.Model }
