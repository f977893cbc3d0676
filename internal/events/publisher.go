package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/model"
)

const (
	// StreamName is the name of the audit stream.
	StreamName = "TASK_AUDIT"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "audit"
)

// Publisher writes audit events to JetStream. A nil Publisher is valid
// and drops everything, so callers never have to branch on whether the
// audit stream is configured. Publish failures are logged, not returned:
// the audit trail must never fail a user request.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher over an established NATS client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the audit stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Conversation and tool-call audit trail",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageStored records that a conversation message was persisted.
func (p *Publisher) MessageStored(ctx context.Context, conversationID, userID string, msg *model.Message) {
	p.publish(ctx, &model.AuditEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           model.AuditMessageStored,
		Detail:         string(msg.Role),
		CreatedAt:      time.Now(),
	})
}

// ToolCall records one dispatched tool call and its outcome.
func (p *Publisher) ToolCall(ctx context.Context, conversationID, userID, tool string, success bool) {
	p.publish(ctx, &model.AuditEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           model.AuditToolCall,
		Tool:           tool,
		Success:        &success,
		CreatedAt:      time.Now(),
	})
}

// LoopFallback records that the orchestration loop substituted the safe
// fallback answer.
func (p *Publisher) LoopFallback(ctx context.Context, conversationID, userID string, iterations int) {
	p.publish(ctx, &model.AuditEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           model.AuditLoopFallback,
		Detail:         fmt.Sprintf("after %d iterations", iterations),
		CreatedAt:      time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, event *model.AuditEvent) {
	if p == nil || p.client == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	subject := fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, event.UserID, event.ConversationID, event.Type)
	if _, err := p.client.JetStream().Publish(ctx, subject, payload); err != nil {
		p.client.logger.Warn("failed to publish audit event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
