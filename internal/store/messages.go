package store

import (
	"context"
	"fmt"

	"github.com/taskmate-ai/task-assistant/internal/model"
)

// AppendMessage durably stores one message. Messages are append-only.
func (s *Store) AppendMessage(ctx context.Context, m *model.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.ConversationID, string(m.Role), m.Content, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns the most recent limit messages of a conversation
// in chronological order (oldest first within the window). Ownership of
// the conversation must be checked by the caller before fetching.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var (
			m         model.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MessageCount returns the number of messages in a conversation.
func (s *Store) MessageCount(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = ?
	`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
