package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskmate-ai/task-assistant/internal/llm"
	"github.com/taskmate-ai/task-assistant/internal/model"
)

// HistorySource supplies conversation history for context assembly.
// Conversation must answer ErrNotFound for both missing and not-owned ids.
type HistorySource interface {
	Conversation(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// AssemblerConfig tunes the context window.
type AssemblerConfig struct {
	// Window is the number of recent messages included verbatim.
	Window int
	// Summarize enables collapsing messages older than the window into a
	// single synthetic system note. Off by default.
	Summarize bool
	// SummarizeThreshold is the message count above which older messages
	// are summarized (only when Summarize is set).
	SummarizeThreshold int
	// Personalization is an optional suffix appended to the system
	// prompt (for example known user preferences).
	Personalization string
}

// ContextAssembler builds the bounded, ordered message list handed to the
// model: one fixed system entry followed by the most recent window of the
// conversation, oldest first. It holds no per-request state; every call
// re-reads the store.
type ContextAssembler struct {
	history HistorySource
	cfg     AssemblerConfig
}

// NewContextAssembler creates a context assembler.
func NewContextAssembler(history HistorySource, cfg AssemblerConfig) *ContextAssembler {
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.SummarizeThreshold <= cfg.Window {
		cfg.SummarizeThreshold = cfg.Window + 10
	}
	return &ContextAssembler{history: history, cfg: cfg}
}

// Assemble verifies the conversation belongs to ownerID and returns the
// context window for it. The caller appends the new user turn.
func (a *ContextAssembler) Assemble(ctx context.Context, ownerID, conversationID string) ([]llm.ChatMessage, error) {
	if _, err := a.history.Conversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}

	fetch := a.cfg.Window
	if a.cfg.Summarize {
		fetch = a.cfg.SummarizeThreshold
	}

	history, err := a.history.RecentMessages(ctx, conversationID, fetch)
	if err != nil {
		return nil, err
	}

	messages := []llm.ChatMessage{{Role: "system", Content: a.systemPrompt()}}

	if a.cfg.Summarize && len(history) > a.cfg.Window {
		older := history[:len(history)-a.cfg.Window]
		history = history[len(history)-a.cfg.Window:]
		messages = append(messages, llm.ChatMessage{
			Role:    "system",
			Content: summarize(older),
		})
	}

	for _, msg := range history {
		// Persisted tool and system rows are audit detail; replaying
		// them without their original call ids would only confuse the
		// model API.
		if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
			continue
		}
		messages = append(messages, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	return messages, nil
}

func (a *ContextAssembler) systemPrompt() string {
	if a.cfg.Personalization == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\nKnown user preferences:\n" + a.cfg.Personalization
}

func summarize(older []model.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary of %d earlier messages in this conversation:\n", len(older))
	for _, msg := range older {
		content := msg.Content
		// Rune-based truncation keeps multi-byte characters intact.
		if runes := []rune(content); len(runes) > 200 {
			content = string(runes[:200]) + "…"
		}
		fmt.Fprintf(&b, "- %s: %s\n", msg.Role, content)
	}
	return b.String()
}
