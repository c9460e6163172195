package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
	"github.com/soares-ari/helpdesk-ai/internal/chunker"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// jobTimeout bounds one document's end-to-end ingestion run.
const jobTimeout = 10 * time.Minute

// DocumentRepository is the slice of document persistence the pipeline needs
// to record ingestion outcomes.
type DocumentRepository interface {
	MarkCompleted(ctx context.Context, id int64, totalChunks int) error
	MarkFailed(ctx context.Context, id int64) error
}

// ChunkRepository persists embedded chunks atomically.
type ChunkRepository interface {
	InsertBatch(ctx context.Context, chunks []storage.Chunk) error
}

// Extractor turns file bytes into plain text.
type Extractor interface {
	Extract(data []byte, mediaType string) (string, error)
}

// BatchEmbedder embeds a batch of texts in order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Job is one document to ingest. The document row already exists in
// PROCESSING state when the job is created.
type Job struct {
	ID         string
	DocumentID int64
	Filename   string
	MediaType  string
	Data       []byte
}

// NewJob creates a job with a fresh correlation ID.
func NewJob(documentID int64, filename, mediaType string, data []byte) Job {
	return Job{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Filename:   filename,
		MediaType:  mediaType,
		Data:       data,
	}
}

// Pipeline runs document ingestion: extract text, chunk it, embed every
// chunk and persist the batch, then finalize the document's status. A
// document ends in exactly one of COMPLETED or FAILED.
type Pipeline struct {
	documents DocumentRepository
	chunks    ChunkRepository
	chunker   *chunker.Chunker
	embedder  BatchEmbedder
	extractor Extractor
	pool      *Pool
	logger    *logger.Logger
}

// NewPipeline creates the ingestion pipeline.
func NewPipeline(
	documents DocumentRepository,
	chunks ChunkRepository,
	ck *chunker.Chunker,
	embedder BatchEmbedder,
	extractor Extractor,
	pool *Pool,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		documents: documents,
		chunks:    chunks,
		chunker:   ck,
		embedder:  embedder,
		extractor: extractor,
		pool:      pool,
		logger:    log.WithComponent("ingest_pipeline"),
	}
}

// Enqueue schedules a job on the worker pool and returns immediately.
func (p *Pipeline) Enqueue(job Job) {
	p.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		p.Process(ctx, job)
	})
}

// Process runs one ingestion job to completion. Any failure, including a
// panic, marks the document FAILED; no chunks are persisted for a failed
// run.
func (p *Pipeline) Process(ctx context.Context, job Job) {
	log := p.logger.With(
		"job_id", job.ID,
		"document_id", job.DocumentID,
		"filename", job.Filename,
	)

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("ingestion panicked", "panic", r)
			p.markFailed(job.DocumentID, log)
		}
	}()

	count, err := p.run(ctx, job)
	if err != nil {
		log.WithError(err).Error("ingestion failed")
		p.markFailed(job.DocumentID, log)
		return
	}

	if err := p.documents.MarkCompleted(ctx, job.DocumentID, count); err != nil {
		log.WithError(err).Error("failed to finalize document")
		p.markFailed(job.DocumentID, log)
		return
	}

	log.Info("ingestion completed",
		"chunks", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// run does the extract-chunk-embed-persist sequence and returns the number
// of persisted chunks.
func (p *Pipeline) run(ctx context.Context, job Job) (int, error) {
	text, err := p.extractor.Extract(job.Data, job.MediaType)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, apperr.New(apperr.KindExtractionFailure, "document contains no extractable text")
	}

	pieces := p.chunker.Chunk(text)
	if len(pieces) == 0 {
		return 0, apperr.New(apperr.KindExtractionFailure, "chunking produced no chunks")
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	// A silent drop by the embedder would misalign chunks and vectors.
	if len(embeddings) != len(pieces) {
		return 0, apperr.Newf(apperr.KindDataIntegrity,
			"embedding count mismatch: got %d embeddings for %d chunks",
			len(embeddings), len(pieces))
	}

	chunks := make([]storage.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = storage.Chunk{
			DocumentID: job.DocumentID,
			Content:    piece.Content,
			Embedding:  embeddings[i],
			ChunkIndex: piece.ChunkIndex,
			Metadata: storage.ChunkMetadata{
				StartChar:    piece.StartChar,
				EndChar:      piece.EndChar,
				DocumentType: job.MediaType,
				HasCodeBlock: chunker.HasCodeBlock(piece.Content),
			},
		}
	}

	if err := p.chunks.InsertBatch(ctx, chunks); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

// markFailed is the last-resort status transition. It uses a fresh context
// so a cancelled job can still be recorded as failed.
func (p *Pipeline) markFailed(documentID int64, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.documents.MarkFailed(ctx, documentID); err != nil {
		log.WithError(err).Error("failed to mark document as failed")
	}
}
