package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// OpenAIGenerator generates answers using OpenAI chat completion models. It
// also works with any OpenAI-compatible endpoint via BaseURL.
type OpenAIGenerator struct {
	client *openai.Client
	config GeneratorConfig
	logger *logger.Logger
}

// NewOpenAIGenerator creates an OpenAI answer generator.
func NewOpenAIGenerator(cfg GeneratorConfig, log *logger.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: log.WithComponent("openai_generator"),
	}, nil
}

// Complete sends a chat completion request and returns the answer text.
func (g *OpenAIGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   g.config.MaxTokens,
		Temperature: float32(g.config.Temperature),
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		g.logger.WithError(err).Error("chat completion failed")
		return "", apperr.Wrap(apperr.KindGenerationFailure, "chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindGenerationFailure, "chat completion returned no choices")
	}
	if resp.Choices[0].Message.Content == "" {
		return "", apperr.New(apperr.KindGenerationFailure, "chat completion returned no text")
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Name() string  { return "openai" }
func (g *OpenAIGenerator) Model() string { return g.config.Model }
