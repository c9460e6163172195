// Package storage provides PostgreSQL persistence for documents, chunks and
// conversations, including pgvector similarity search.
package storage

import (
	"time"
)

// DocumentStatus is the ingestion lifecycle state of a document.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusFailed     DocumentStatus = "FAILED"
)

// Document represents an uploaded document. Its status and chunk count are
// mutated only by the single ingestion run that owns it.
type Document struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	Filename    string         `json:"filename"`
	FileSize    int64          `json:"file_size"`
	MimeType    string         `json:"mime_type"`
	Status      DocumentStatus `json:"status"`
	TotalChunks int            `json:"total_chunks"`
	StoragePath string         `json:"storage_path,omitempty"`
	UploadedAt  time.Time      `json:"uploaded_at"`
}

// ChunkMetadata is the flat metadata record persisted with each chunk.
type ChunkMetadata struct {
	Page         *int   `json:"page,omitempty"`
	Section      string `json:"section,omitempty"`
	StartChar    int    `json:"startChar"`
	EndChar      int    `json:"endChar"`
	DocumentType string `json:"documentType,omitempty"`
	Language     string `json:"language,omitempty"`
	HasCodeBlock bool   `json:"hasCodeBlock,omitempty"`
}

// Chunk is an embedded slice of a document's text. Chunks are written once
// during ingestion and never mutated; deleting a document cascades to its
// chunks.
type Chunk struct {
	ID         int64         `json:"id"`
	DocumentID int64         `json:"document_id"`
	Content    string        `json:"content"`
	Embedding  []float32     `json:"embedding,omitempty"`
	ChunkIndex int           `json:"chunk_index"`
	Metadata   ChunkMetadata `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`
}

// RetrievedChunk is a chunk returned from similarity search together with
// its score and the owning document's display name.
type RetrievedChunk struct {
	Chunk
	Similarity   float64 `json:"similarity"`
	DocumentName string  `json:"document_name"`
}

// Conversation groups ordered chat messages for one user.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

// Message is one turn in a conversation. Assistant messages carry citations.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Citations      []Citation  `json:"citations,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Citation is a denormalized, point-in-time snapshot of a retrieved chunk.
// It must survive chunk and document deletion without dangling.
type Citation struct {
	ChunkID         int64            `json:"chunkId"`
	Content         string           `json:"content"`
	SimilarityScore float64          `json:"similarityScore"`
	Metadata        CitationMetadata `json:"metadata"`
}

// CitationMetadata carries the source document details of a citation.
type CitationMetadata struct {
	DocumentID   int64  `json:"documentId"`
	DocumentName string `json:"documentName"`
	Page         *int   `json:"page,omitempty"`
	Section      string `json:"section,omitempty"`
}
