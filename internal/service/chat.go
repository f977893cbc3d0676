package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/agent"
	"github.com/taskmate-ai/task-assistant/internal/events"
	"github.com/taskmate-ai/task-assistant/internal/llm"
	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
)

// ChatService handles one chat turn end to end: load-or-create the
// conversation, persist the user message, assemble the context window,
// run the orchestration loop, persist the final answer. No state survives
// between calls; a request landing on a freshly started process sees
// exactly the same conversation.
type ChatService struct {
	conversations *ConversationService
	assembler     *agent.ContextAssembler
	agent         *agent.Agent
	events        *events.Publisher
	logger        *logger.Logger
}

// NewChatService creates a new chat service. events may be nil when no
// audit stream is configured.
func NewChatService(
	conversations *ConversationService,
	assembler *agent.ContextAssembler,
	ag *agent.Agent,
	ev *events.Publisher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		assembler:     assembler,
		agent:         ag,
		events:        ev,
		logger:        log,
	}
}

// HandleMessage processes one inbound chat message for ownerID and
// returns the assistant's final answer.
func (s *ChatService) HandleMessage(ctx context.Context, ownerID string, req *model.ChatRequest) (*model.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, model.ValidationError("message is required")
	}
	if len(message) > model.MaxChatMessageLength {
		return nil, model.ValidationError(fmt.Sprintf("message must be %d characters or less", model.MaxChatMessageLength))
	}

	conv, err := s.conversations.GetOrCreate(ctx, ownerID, req.ConversationID, message)
	if err != nil {
		return nil, err
	}

	// History is read before the new turn is written, so the window
	// holds only prior messages; the new turn is appended to the model
	// context below.
	window, err := s.assembler.Assemble(ctx, ownerID, conv.ID)
	if err != nil {
		return nil, err
	}

	// The user turn is durable before the first model call. A crash
	// from here on loses at most the assistant half of this turn.
	userMsg, err := s.conversations.AppendMessage(ctx, conv.ID, model.RoleUser, message)
	if err != nil {
		return nil, err
	}
	s.events.MessageStored(ctx, conv.ID, ownerID, userMsg)

	window = append(window, llm.ChatMessage{Role: "user", Content: message})

	result, err := s.agent.Run(ctx, window, ownerID)
	if err != nil {
		s.logger.Error("agent run failed",
			zap.String("conversation_id", conv.ID),
			zap.String("user_id", ownerID),
			zap.Error(err))
		return nil, err
	}

	for _, inv := range result.ToolInvocations {
		s.events.ToolCall(ctx, conv.ID, ownerID, inv.Name, inv.Success)
	}
	if result.FellBack {
		s.events.LoopFallback(ctx, conv.ID, ownerID, result.Iterations)
	}

	assistantMsg, err := s.conversations.AppendMessage(ctx, conv.ID, model.RoleAssistant, result.Response)
	if err != nil {
		return nil, err
	}
	s.events.MessageStored(ctx, conv.ID, ownerID, assistantMsg)

	s.logger.Info("chat turn completed",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", ownerID),
		zap.Int("iterations", result.Iterations),
		zap.Int("tool_calls", len(result.ToolInvocations)),
		zap.Bool("fallback", result.FellBack))

	return &model.ChatResponse{
		ConversationID: conv.ID,
		Response:       result.Response,
	}, nil
}
