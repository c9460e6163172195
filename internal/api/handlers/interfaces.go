package handlers

import (
	"context"
	"io"
	"time"

	"github.com/soares-ari/helpdesk-ai/internal/ingest"
	"github.com/soares-ari/helpdesk-ai/internal/rag"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
)

// DocumentRepository is the document persistence the handlers need.
type DocumentRepository interface {
	Create(ctx context.Context, doc *storage.Document) error
	GetByID(ctx context.Context, id int64) (*storage.Document, error)
	ListByUser(ctx context.Context, userID int64) ([]storage.Document, error)
	Delete(ctx context.Context, id int64) error
}

// ConversationRepository is the conversation persistence the handlers need.
type ConversationRepository interface {
	GetConversation(ctx context.Context, id int64) (*storage.Conversation, error)
	ListByUser(ctx context.Context, userID int64) ([]storage.Conversation, error)
	GetMessages(ctx context.Context, conversationID int64) ([]storage.Message, error)
}

// ObjectStorage is the object store surface the handlers need.
type ObjectStorage interface {
	UploadReader(ctx context.Context, reader io.Reader, size int64, path, contentType string) (string, error)
	GenerateSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, path string) error
	Health(ctx context.Context) error
}

// IngestEnqueuer schedules ingestion jobs.
type IngestEnqueuer interface {
	Enqueue(job ingest.Job)
}

// MediaTypeChecker reports whether a media type can be extracted.
type MediaTypeChecker interface {
	Supports(mediaType string) bool
}

// ChatService answers user messages through the retrieval pipeline.
type ChatService interface {
	Chat(ctx context.Context, userID int64, conversationID *int64, message string) (*rag.ChatResult, error)
}

// Pinger verifies a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
