package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/middleware"
	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/service"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
)

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	service *service.ChatService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Message handles POST /api/v1/chat/message
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateChatMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.service.HandleMessage(ctx, userID, &req)
	if err != nil {
		var verr model.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "conversation not found")
		default:
			h.logger.Error("chat turn failed",
				zap.String("user_id", userID),
				zap.Error(err))
			writeError(w, http.StatusBadGateway, "assistant temporarily unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
