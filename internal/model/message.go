package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message represents one conversation turn. Messages are immutable once
// written; ordering is by creation time, ties broken by id (v7 UUIDs sort
// by creation order).
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListMessagesResponse is the response for listing conversation messages.
// Count is the number of messages returned; Total is the number stored in
// the conversation.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
	Total    int       `json:"total"`
}
