package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore persists documents and their ingestion status.
type DocumentStore struct {
	db *PostgresDB
}

// NewDocumentStore creates a document repository.
func NewDocumentStore(db *PostgresDB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Create inserts a new document and fills in its generated ID and timestamp.
func (s *DocumentStore) Create(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (user_id, filename, file_size, mime_type, status, total_chunks, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, uploaded_at`

	err := s.db.DB().QueryRowContext(ctx, query,
		doc.UserID, doc.Filename, doc.FileSize, doc.MimeType,
		doc.Status, doc.TotalChunks, doc.StoragePath,
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID returns a document or nil when it does not exist.
func (s *DocumentStore) GetByID(ctx context.Context, id int64) (*Document, error) {
	query := `
		SELECT id, user_id, filename, file_size, mime_type, status, total_chunks, storage_path, uploaded_at
		FROM documents
		WHERE id = $1`

	var doc Document
	err := s.db.DB().QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.UserID, &doc.Filename, &doc.FileSize, &doc.MimeType,
		&doc.Status, &doc.TotalChunks, &doc.StoragePath, &doc.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListByUser returns all documents owned by a user, newest first.
func (s *DocumentStore) ListByUser(ctx context.Context, userID int64) ([]Document, error) {
	query := `
		SELECT id, user_id, filename, file_size, mime_type, status, total_chunks, storage_path, uploaded_at
		FROM documents
		WHERE user_id = $1
		ORDER BY uploaded_at DESC`

	rows, err := s.db.DB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.ID, &doc.UserID, &doc.Filename, &doc.FileSize, &doc.MimeType,
			&doc.Status, &doc.TotalChunks, &doc.StoragePath, &doc.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkCompleted transitions a document to COMPLETED with its final chunk count.
func (s *DocumentStore) MarkCompleted(ctx context.Context, id int64, totalChunks int) error {
	query := `UPDATE documents SET status = $1, total_chunks = $2 WHERE id = $3`
	if _, err := s.db.DB().ExecContext(ctx, query, StatusCompleted, totalChunks, id); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	return nil
}

// MarkFailed transitions a document to FAILED.
func (s *DocumentStore) MarkFailed(ctx context.Context, id int64) error {
	query := `UPDATE documents SET status = $1 WHERE id = $2`
	if _, err := s.db.DB().ExecContext(ctx, query, StatusFailed, id); err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}

// Delete removes a document. Its chunks go with it via ON DELETE CASCADE.
func (s *DocumentStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.DB().ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
