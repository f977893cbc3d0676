package model

const (
	// MaxChatMessageLength bounds a single chat message.
	MaxChatMessageLength = 5000
)

// ChatRequest is an inbound chat message. ConversationID is optional; when
// empty a new conversation is started. The owner identity always comes
// from the authenticated request, never from the body.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse carries the assistant's final answer for one turn.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
}
