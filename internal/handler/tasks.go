package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/middleware"
	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/service"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
)

// TaskHandler handles task endpoints. These are the same operations the
// assistant's tools call, exposed directly for non-chat clients.
type TaskHandler struct {
	service *service.TaskService
	logger  *logger.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(svc *service.TaskService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.service.CreateTask(ctx, userID, &req)
	if err != nil {
		h.writeServiceError(w, err, "failed to create task")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var filter model.TaskFilter
	q := r.URL.Query()

	if c := q.Get("completed"); c != "" {
		if parsed, err := strconv.ParseBool(c); err == nil {
			filter.Completed = &parsed
		}
	}
	if p := q.Get("priority"); p != "" {
		filter.Priority = model.Priority(p)
	}
	if t := q.Get("tags"); t != "" {
		filter.Tags = strings.Split(t, ",")
	}
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			filter.Limit = parsed
		}
	}

	tasks, err := h.service.ListTasks(ctx, userID, filter)
	if err != nil {
		h.writeServiceError(w, err, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListTasksResponse{
		Tasks: tasks,
		Count: len(tasks),
	})
}

// Get handles GET /api/v1/tasks/:id
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	taskID := chi.URLParam(r, "id")

	if err := middleware.ValidateTaskID(taskID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.service.GetTask(ctx, userID, taskID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Update handles PATCH /api/v1/tasks/:id
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	taskID := chi.URLParam(r, "id")

	if err := middleware.ValidateTaskID(taskID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.service.UpdateTask(ctx, userID, taskID, &req)
	if err != nil {
		h.writeServiceError(w, err, "failed to update task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Complete handles POST /api/v1/tasks/:id/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	taskID := chi.URLParam(r, "id")

	if err := middleware.ValidateTaskID(taskID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.service.CompleteTask(ctx, userID, taskID)
	if err != nil {
		h.writeServiceError(w, err, "failed to complete task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/v1/tasks/:id
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	taskID := chi.URLParam(r, "id")

	if err := middleware.ValidateTaskID(taskID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.DeleteTask(ctx, userID, taskID); err != nil {
		h.writeServiceError(w, err, "failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
