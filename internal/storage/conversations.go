package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ConversationStore persists conversations and their messages.
type ConversationStore struct {
	db *PostgresDB
}

// NewConversationStore creates a conversation repository.
func NewConversationStore(db *PostgresDB) *ConversationStore {
	return &ConversationStore{db: db}
}

// CreateConversation inserts a conversation and fills in its generated ID.
func (s *ConversationStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	query := `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := s.db.DB().QueryRowContext(ctx, query, conv.UserID, conv.Title).
		Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// GetConversation returns a conversation or nil when it does not exist.
func (s *ConversationStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	query := `SELECT id, user_id, title, created_at FROM conversations WHERE id = $1`

	var conv Conversation
	err := s.db.DB().QueryRowContext(ctx, query, id).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// ListByUser returns a user's conversations, newest first.
func (s *ConversationStore) ListByUser(ctx context.Context, userID int64) ([]Conversation, error) {
	query := `SELECT id, user_id, title, created_at FROM conversations WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.DB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// CreateMessage appends a message to a conversation. Citations are stored as
// a JSONB snapshot so they survive later chunk deletion.
func (s *ConversationStore) CreateMessage(ctx context.Context, msg *Message) error {
	var citations []byte
	if len(msg.Citations) > 0 {
		var err error
		citations, err = json.Marshal(msg.Citations)
		if err != nil {
			return fmt.Errorf("failed to marshal citations: %w", err)
		}
	}

	query := `
		INSERT INTO messages (conversation_id, role, content, citations)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.DB().QueryRowContext(ctx, query,
		msg.ConversationID, msg.Role, msg.Content, citations,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessages returns a conversation's messages in chronological order.
func (s *ConversationStore) GetMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	query := `
		SELECT id, conversation_id, role, content, citations, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.DB().QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var msg Message
		var citations []byte
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &citations, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if len(citations) > 0 {
			if err := json.Unmarshal(citations, &msg.Citations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
