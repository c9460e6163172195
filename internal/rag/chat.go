package rag

import (
	"context"
	"strings"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
	"github.com/soares-ari/helpdesk-ai/internal/llm"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// FallbackAnswer is returned without calling the generator when retrieval
// finds no relevant chunks.
const FallbackAnswer = "Sorry, I could not find relevant information in the available documents to answer your question."

// defaultConversationTitle names conversations started without one.
const defaultConversationTitle = "New Conversation"

// QueryEmbedder produces an embedding for a single query string.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkRetriever finds the chunks most relevant to a query embedding.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, queryEmbedding []float32) ([]storage.RetrievedChunk, error)
}

// ConversationRepository persists conversations and messages.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conv *storage.Conversation) error
	GetConversation(ctx context.Context, id int64) (*storage.Conversation, error)
	CreateMessage(ctx context.Context, msg *storage.Message) error
}

// EmbeddingCacher caches query embeddings. Implementations must treat every
// failure as a miss.
type EmbeddingCacher interface {
	Get(ctx context.Context, query string) ([]float32, bool)
	Set(ctx context.Context, query string, embedding []float32)
}

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	ConversationID int64           `json:"conversation_id"`
	Message        storage.Message `json:"message"`
}

// ChatService orchestrates the answer pipeline: resolve the conversation,
// embed the question, retrieve context, generate a grounded answer and
// persist both sides of the exchange.
type ChatService struct {
	conversations ConversationRepository
	embedder      QueryEmbedder
	retriever     ChunkRetriever
	generator     llm.Generator
	cache         EmbeddingCacher
	logger        *logger.Logger
}

// NewChatService creates the chat orchestrator. cache may be nil.
func NewChatService(
	conversations ConversationRepository,
	embedder QueryEmbedder,
	retriever ChunkRetriever,
	generator llm.Generator,
	cache EmbeddingCacher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		embedder:      embedder,
		retriever:     retriever,
		generator:     generator,
		cache:         cache,
		logger:        log.WithComponent("chat"),
	}
}

// Chat answers a user message. When conversationID is nil a new conversation
// is started. Input and ownership problems keep their own error kinds; any
// failure past validation is reported as a chat failure.
func (s *ChatService) Chat(ctx context.Context, userID int64, conversationID *int64, message string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "message must not be blank")
	}

	conv, err := s.getOrCreateConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("conversation_id", conv.ID, "user_id", userID)

	userMsg := &storage.Message{
		ConversationID: conv.ID,
		Role:           storage.RoleUser,
		Content:        message,
	}
	if err := s.conversations.CreateMessage(ctx, userMsg); err != nil {
		return nil, apperr.Wrap(apperr.KindChatFailure, "failed to save user message", err)
	}

	queryEmbedding, err := s.embedQuery(ctx, message)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindChatFailure, "failed to embed query", err)
	}

	chunks, err := s.retriever.Retrieve(ctx, queryEmbedding)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindChatFailure, "retrieval failed", err)
	}

	if len(chunks) == 0 {
		log.Warn("no relevant chunks found for query")
		return s.saveAnswer(ctx, conv, FallbackAnswer, nil)
	}

	log.Info("retrieved relevant chunks", "count", len(chunks))

	answer, err := s.generator.Complete(ctx, SystemPrompt(), BuildContextPrompt(chunks, message))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindChatFailure, "answer generation failed", err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, apperr.Wrap(apperr.KindChatFailure, "answer generation failed",
			apperr.New(apperr.KindGenerationFailure, "generator returned an empty answer"))
	}

	return s.saveAnswer(ctx, conv, answer, BuildCitations(chunks))
}

// getOrCreateConversation loads an existing conversation, enforcing
// ownership, or starts a new one.
func (s *ChatService) getOrCreateConversation(ctx context.Context, userID int64, conversationID *int64) (*storage.Conversation, error) {
	if conversationID == nil {
		conv := &storage.Conversation{
			UserID: userID,
			Title:  defaultConversationTitle,
		}
		if err := s.conversations.CreateConversation(ctx, conv); err != nil {
			return nil, apperr.Wrap(apperr.KindChatFailure, "failed to create conversation", err)
		}
		return conv, nil
	}

	conv, err := s.conversations.GetConversation(ctx, *conversationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindChatFailure, "failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "conversation %d not found", *conversationID)
	}
	if conv.UserID != userID {
		return nil, apperr.Newf(apperr.KindOwnershipViolation, "conversation %d does not belong to user %d", *conversationID, userID)
	}
	return conv, nil
}

// embedQuery returns the query embedding, consulting the cache first.
func (s *ChatService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.cache != nil {
		if embedding, ok := s.cache.Get(ctx, query); ok {
			return embedding, nil
		}
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, query, embedding)
	}
	return embedding, nil
}

// saveAnswer persists the assistant message and builds the result.
func (s *ChatService) saveAnswer(ctx context.Context, conv *storage.Conversation, answer string, citations []storage.Citation) (*ChatResult, error) {
	msg := &storage.Message{
		ConversationID: conv.ID,
		Role:           storage.RoleAssistant,
		Content:        answer,
		Citations:      citations,
	}
	if err := s.conversations.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(apperr.KindChatFailure, "failed to save assistant message", err)
	}

	return &ChatResult{
		ConversationID: conv.ID,
		Message:        *msg,
	}, nil
}
