package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soares-ari/helpdesk-ai/internal/chunker"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

type fakeDocRepo struct {
	completedID    int64
	completedCount int
	failedID       int64
	completedCalls int
	failedCalls    int
	completeErr    error
}

func (f *fakeDocRepo) MarkCompleted(ctx context.Context, id int64, totalChunks int) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completedCalls++
	f.completedID = id
	f.completedCount = totalChunks
	return nil
}

func (f *fakeDocRepo) MarkFailed(ctx context.Context, id int64) error {
	f.failedCalls++
	f.failedID = id
	return nil
}

type fakeChunkRepo struct {
	inserted  []storage.Chunk
	insertErr error
}

func (f *fakeChunkRepo) InsertBatch(ctx context.Context, chunks []storage.Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return nil
}

type fakeExtractor struct {
	text  string
	err   error
	panic bool
}

func (f *fakeExtractor) Extract(data []byte, mediaType string) (string, error) {
	if f.panic {
		panic("extractor exploded")
	}
	return f.text, f.err
}

// countEmbedder returns one vector per text, or a deliberately wrong count.
type countEmbedder struct {
	dimension int
	dropLast  bool
	err       error
}

func (f *countEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	count := len(texts)
	if f.dropLast && count > 0 {
		count--
	}
	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = make([]float32, f.dimension)
	}
	return vectors, nil
}

func testChunker() *chunker.Chunker {
	return chunker.New(chunker.Config{
		ChunkSizeTokens: 25,
		OverlapTokens:   5,
		MinChunkTokens:  10,
		TokensPerChar:   4,
	})
}

func newTestPipeline(docs *fakeDocRepo, chunks *fakeChunkRepo, ext *fakeExtractor, emb *countEmbedder) *Pipeline {
	return NewPipeline(docs, chunks, testChunker(), emb, ext, nil, logger.Default())
}

func longText() string {
	return strings.TrimSpace(strings.Repeat("The printer needs a firmware update before it can join the network. ", 15))
}

func TestProcessCompletesDocument(t *testing.T) {
	docs := &fakeDocRepo{}
	chunks := &fakeChunkRepo{}
	p := newTestPipeline(docs, chunks, &fakeExtractor{text: longText()}, &countEmbedder{dimension: 8})

	p.Process(context.Background(), NewJob(42, "printer.pdf", "application/pdf", []byte("raw")))

	require.NotEmpty(t, chunks.inserted)
	assert.Equal(t, 1, docs.completedCalls)
	assert.Zero(t, docs.failedCalls)
	assert.Equal(t, int64(42), docs.completedID)
	assert.Equal(t, len(chunks.inserted), docs.completedCount)

	for i, c := range chunks.inserted {
		assert.Equal(t, int64(42), c.DocumentID)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Len(t, c.Embedding, 8)
		assert.Equal(t, "application/pdf", c.Metadata.DocumentType)
		assert.Less(t, c.Metadata.StartChar, c.Metadata.EndChar)
	}
}

func TestProcessFailsOnEmbeddingCountMismatch(t *testing.T) {
	docs := &fakeDocRepo{}
	chunks := &fakeChunkRepo{}
	emb := &countEmbedder{dimension: 8, dropLast: true}
	p := newTestPipeline(docs, chunks, &fakeExtractor{text: longText()}, emb)

	p.Process(context.Background(), NewJob(7, "doc.pdf", "application/pdf", nil))

	assert.Equal(t, 1, docs.failedCalls)
	assert.Equal(t, int64(7), docs.failedID)
	assert.Zero(t, docs.completedCalls)
	assert.Empty(t, chunks.inserted, "no chunks may be persisted for a failed run")
}

func TestProcessFailsOnExtractionError(t *testing.T) {
	docs := &fakeDocRepo{}
	chunks := &fakeChunkRepo{}
	p := newTestPipeline(docs, chunks, &fakeExtractor{err: errors.New("corrupt file")}, &countEmbedder{dimension: 8})

	p.Process(context.Background(), NewJob(7, "doc.pdf", "application/pdf", nil))

	assert.Equal(t, 1, docs.failedCalls)
	assert.Empty(t, chunks.inserted)
}

func TestProcessFailsOnEmptyText(t *testing.T) {
	docs := &fakeDocRepo{}
	chunks := &fakeChunkRepo{}
	p := newTestPipeline(docs, chunks, &fakeExtractor{text: "   \n  "}, &countEmbedder{dimension: 8})

	p.Process(context.Background(), NewJob(7, "empty.pdf", "application/pdf", nil))

	assert.Equal(t, 1, docs.failedCalls)
	assert.Empty(t, chunks.inserted)
}

func TestProcessFailsOnEmbedderError(t *testing.T) {
	docs := &fakeDocRepo{}
	chunks := &fakeChunkRepo{}
	emb := &countEmbedder{dimension: 8, err: errors.New("provider down")}
	p := newTestPipeline(docs, chunks, &fakeExtractor{text: longText()}, emb)

	p.Process(context.Background(), NewJob(7, "doc.pdf", "application/pdf", nil))

	assert.Equal(t, 1, docs.failedCalls)
	assert.Empty(t, chunks.inserted)
}

func TestProcessFailsOnInsertError(t *testing.T) {
	docs := &fakeDocRepo{}
	chunks := &fakeChunkRepo{insertErr: errors.New("db down")}
	p := newTestPipeline(docs, chunks, &fakeExtractor{text: longText()}, &countEmbedder{dimension: 8})

	p.Process(context.Background(), NewJob(7, "doc.pdf", "application/pdf", nil))

	assert.Equal(t, 1, docs.failedCalls)
	assert.Zero(t, docs.completedCalls)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	docs := &fakeDocRepo{}
	chunks := &fakeChunkRepo{}
	p := newTestPipeline(docs, chunks, &fakeExtractor{panic: true}, &countEmbedder{dimension: 8})

	assert.NotPanics(t, func() {
		p.Process(context.Background(), NewJob(7, "doc.pdf", "application/pdf", nil))
	})
	assert.Equal(t, 1, docs.failedCalls)
}

func TestProcessFailsDocumentWhenFinalizeFails(t *testing.T) {
	docs := &fakeDocRepo{completeErr: errors.New("db down")}
	chunks := &fakeChunkRepo{}
	p := newTestPipeline(docs, chunks, &fakeExtractor{text: longText()}, &countEmbedder{dimension: 8})

	p.Process(context.Background(), NewJob(7, "doc.pdf", "application/pdf", nil))

	assert.Equal(t, 1, docs.failedCalls, "finalize failure must still end in FAILED")
}

func TestNewJobAssignsDistinctIDs(t *testing.T) {
	a := NewJob(1, "a.pdf", "application/pdf", nil)
	b := NewJob(1, "a.pdf", "application/pdf", nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
