package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
)

// ChunkStore persists embedded chunks and runs pgvector similarity search.
type ChunkStore struct {
	db        *PostgresDB
	dimension int
}

// NewChunkStore creates a chunk repository. All embeddings written or queried
// through it must have the configured dimension.
func NewChunkStore(db *PostgresDB, dimension int) *ChunkStore {
	return &ChunkStore{db: db, dimension: dimension}
}

// InsertBatch writes all chunks in a single transaction. Either every chunk
// is persisted or none is.
func (s *ChunkStore) InsertBatch(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i := range chunks {
		if len(chunks[i].Embedding) != s.dimension {
			return apperr.Newf(apperr.KindDataIntegrity,
				"chunk %d has embedding dimension %d, expected %d",
				i, len(chunks[i].Embedding), s.dimension)
		}
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (document_id, content, embedding, chunk_index, metadata)
			VALUES ($1, $2, $3::vector, $4, $5)
			RETURNING id, created_at`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			metadata, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal chunk metadata: %w", err)
			}
			err = stmt.QueryRowContext(ctx,
				c.DocumentID, c.Content, embeddingToString(c.Embedding), c.ChunkIndex, metadata,
			).Scan(&c.ID, &c.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %d: %w", c.ChunkIndex, err)
			}
		}
		return nil
	})
}

// SearchSimilar returns up to topK chunks whose cosine similarity to the
// query embedding meets the threshold, most similar first. An empty result
// is normal and not an error.
func (s *ChunkStore) SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) ([]RetrievedChunk, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, apperr.Newf(apperr.KindDataIntegrity,
			"query embedding dimension %d does not match index dimension %d",
			len(queryEmbedding), s.dimension)
	}

	query := `
		SELECT c.id, c.document_id, c.content, c.chunk_index, c.metadata, c.created_at,
		       d.filename,
		       1 - (c.embedding <=> $1::vector) AS similarity
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE 1 - (c.embedding <=> $1::vector) >= $2
		ORDER BY c.embedding <=> $1::vector
		LIMIT $3`

	rows, err := s.db.DB().QueryContext(ctx, query, embeddingToString(queryEmbedding), threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []RetrievedChunk
	for rows.Next() {
		var rc RetrievedChunk
		var metadata []byte
		if err := rows.Scan(
			&rc.ID, &rc.DocumentID, &rc.Content, &rc.ChunkIndex, &metadata, &rc.CreatedAt,
			&rc.DocumentName, &rc.Similarity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
			}
		}
		results = append(results, rc)
	}
	return results, rows.Err()
}

// DeleteByDocument removes all chunks of a document.
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	if _, err := s.db.DB().ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// CountByDocument returns the number of persisted chunks for a document.
func (s *ChunkStore) CountByDocument(ctx context.Context, documentID int64) (int, error) {
	var count int
	err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// embeddingToString renders a vector in pgvector's text format.
func embeddingToString(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteByte(']')
	return b.String()
}
