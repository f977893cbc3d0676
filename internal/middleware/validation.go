package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/taskmate-ai/task-assistant/internal/model"
)

// ValidateChatMessage validates an inbound chat message body.
func ValidateChatMessage(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > model.MaxChatMessageLength {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateTaskID validates a task ID.
func ValidateTaskID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid task ID format")
	}
	return nil
}

// ValidateTitle validates a task or conversation title.
func ValidateTitle(title string) error {
	if len(title) > model.MaxTitleLength {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
