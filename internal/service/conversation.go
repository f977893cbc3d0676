package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
	"github.com/taskmate-ai/task-assistant/pkg/metrics"
)

// ConversationService is the conversation persistence gateway. Every read
// and write goes straight to the store; nothing is cached in process, so
// any instance (including one started after a crash) reconstructs the
// same conversation from the same rows.
type ConversationService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st *store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{store: st, logger: log}
}

// GetOrCreate returns the conversation with the given id if ownerID owns
// it, or creates a fresh one when no id is supplied. A new conversation
// is titled from the first user message.
func (s *ConversationService) GetOrCreate(ctx context.Context, ownerID, conversationID, firstMessage string) (*model.Conversation, error) {
	if conversationID != "" {
		return s.store.GetConversation(ctx, ownerID, conversationID)
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    ownerID,
		Title:     titleFromMessage(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
		Active:    true,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", ownerID))
	metrics.ConversationsTotal.Inc()

	return conv, nil
}

// Conversation retrieves a conversation scoped to its owner.
func (s *ConversationService) Conversation(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error) {
	return s.store.GetConversation(ctx, ownerID, conversationID)
}

// AppendMessage durably writes one message and bumps the conversation's
// updated timestamp. The write is synchronous: once this returns, the
// turn survives a process restart.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID string, role model.Role, content string) (*model.Message, error) {
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, conversationID, msg.CreatedAt); err != nil {
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(string(role)).Inc()
	return msg, nil
}

// RecentMessages returns the most recent limit messages of a conversation
// in chronological order.
func (s *ConversationService) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return s.store.RecentMessages(ctx, conversationID, limit)
}

// MessageCount returns the number of messages in a conversation.
func (s *ConversationService) MessageCount(ctx context.Context, conversationID string) (int, error) {
	return s.store.MessageCount(ctx, conversationID)
}

// List returns the owner's active conversations, most recent first.
func (s *ConversationService) List(ctx context.Context, ownerID string, limit, offset int) (*model.ListConversationsResponse, error) {
	convs, err := s.store.ListConversations(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	}, nil
}

// Messages returns a conversation's recent messages after checking that
// ownerID owns it. Total counts every stored message, not just the page
// returned.
func (s *ConversationService) Messages(ctx context.Context, ownerID, conversationID string, limit int) (*model.ListMessagesResponse, error) {
	if _, err := s.store.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.store.RecentMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.MessageCount(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &model.ListMessagesResponse{Messages: msgs, Count: len(msgs), Total: total}, nil
}

// Archive flags a conversation inactive. Conversations are never
// hard-deleted.
func (s *ConversationService) Archive(ctx context.Context, ownerID, conversationID string) error {
	return s.store.ArchiveConversation(ctx, ownerID, conversationID)
}

func titleFromMessage(message string) string {
	title := strings.TrimSpace(message)
	if title == "" {
		return "New conversation"
	}
	// Truncate on a rune boundary so multi-byte characters survive intact.
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return title
}
