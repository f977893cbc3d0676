package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskmate-ai/task-assistant/internal/model"
)

const conversationColumns = `id, user_id, title, created_at, updated_at, active`

// CreateConversation inserts a new conversation row.
func (s *Store) CreateConversation(ctx context.Context, c *model.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Title, formatTime(c.CreatedAt), formatTime(c.UpdatedAt), boolInt(c.Active))
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by id, scoped to its owner.
// Missing and not-owned are both ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, userID, id string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations WHERE id = ? AND user_id = ?
	`, id, userID)

	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return c, nil
}

// ListConversations retrieves a user's active conversations, most recently
// updated first.
func (s *Store) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = ? AND active = 1
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select conversations: %w", err)
	}
	defer rows.Close()

	convs := []model.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// TouchConversation bumps a conversation's updated timestamp.
func (s *Store) TouchConversation(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// ArchiveConversation flags a conversation inactive, scoped to its owner.
func (s *Store) ArchiveConversation(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET active = 0, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, formatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	return requireRow(res)
}

func scanConversation(r rowScanner) (*model.Conversation, error) {
	var (
		c         model.Conversation
		createdAt string
		updatedAt string
		active    int
	)
	if err := r.Scan(&c.ID, &c.UserID, &c.Title, &createdAt, &updatedAt, &active); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	c.Active = active != 0
	return &c, nil
}
