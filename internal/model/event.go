package model

import (
	"time"
)

// AuditEventType classifies audit trail events.
type AuditEventType string

const (
	AuditMessageStored AuditEventType = "message_stored"
	AuditToolCall      AuditEventType = "tool_call"
	AuditLoopFallback  AuditEventType = "loop_fallback"
)

// AuditEvent records one auditable action in a conversation: a persisted
// message, a dispatched tool call, or a safety fallback.
type AuditEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Type           AuditEventType `json:"type"`
	Tool           string         `json:"tool,omitempty"`
	Success        *bool          `json:"success,omitempty"`
	Detail         string         `json:"detail,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
