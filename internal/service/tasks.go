// Package service provides business logic for the task assistant.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
	"github.com/taskmate-ai/task-assistant/pkg/metrics"
)

// TaskService implements the five tenant-scoped task operations. Every
// method takes the owner's user id explicitly; it is established at the
// auth boundary and never read from request or tool arguments.
type TaskService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(st *store.Store, log *logger.Logger) *TaskService {
	return &TaskService{store: st, logger: log}
}

// CreateTask validates the request and inserts one task owned by ownerID.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, req *model.CreateTaskRequest) (*model.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, model.ValidationError("title is required")
	}
	if len(title) > model.MaxTitleLength {
		return nil, model.ValidationError(fmt.Sprintf("title must be %d characters or less", model.MaxTitleLength))
	}
	if len(req.Description) > model.MaxDescriptionLength {
		return nil, model.ValidationError(fmt.Sprintf("description must be %d characters or less", model.MaxDescriptionLength))
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, model.ValidationError("priority must be one of: low, medium, high")
	}

	if req.Recurrence != "" && !model.ValidRecurrence(req.Recurrence) {
		return nil, model.ValidationError("recurrence_pattern must be one of: daily, weekly, monthly")
	}
	interval := req.RecurrenceInterval
	if interval < 0 {
		return nil, model.ValidationError("recurrence_interval must be positive")
	}
	if interval == 0 {
		interval = 1
	}

	now := time.Now()
	task := &model.Task{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		UserID:             ownerID,
		Title:              title,
		Description:        req.Description,
		Priority:           priority,
		Status:             model.StatusReady,
		Tags:               normalizeTags(req.Tags),
		DueDate:            req.DueDate,
		Recurrence:         req.Recurrence,
		RecurrenceInterval: interval,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("user_id", ownerID))
	metrics.TasksTotal.WithLabelValues("create").Inc()

	return task, nil
}

// ListTasks returns the owner's tasks matching the filter. Filters that
// match nothing yield an empty list, never an error.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, f model.TaskFilter) ([]model.Task, error) {
	if f.Priority != "" && !model.ValidPriority(f.Priority) {
		return nil, model.ValidationError("priority must be one of: low, medium, high")
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return s.store.ListTasks(ctx, ownerID, f)
}

// GetTask retrieves one task, scoped to its owner.
func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	return s.store.GetTask(ctx, ownerID, taskID)
}

// UpdateTask applies a partial update: only non-nil fields change, absent
// fields are untouched. Returns store.ErrNotFound when no task with that
// id is owned by ownerID.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, req *model.UpdateTaskRequest) (*model.Task, error) {
	if req.Empty() {
		return nil, model.ValidationError("at least one field must be provided to update")
	}

	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" || len(trimmed) > model.MaxTitleLength {
			return nil, model.ValidationError(fmt.Sprintf("title must be between 1 and %d characters", model.MaxTitleLength))
		}
		req.Title = &trimmed
	}
	if req.Description != nil && len(*req.Description) > model.MaxDescriptionLength {
		return nil, model.ValidationError(fmt.Sprintf("description must be %d characters or less", model.MaxDescriptionLength))
	}
	if req.Priority != nil && !model.ValidPriority(*req.Priority) {
		return nil, model.ValidationError("priority must be one of: low, medium, high")
	}
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		return nil, model.ValidationError("status must be one of: ready, in_progress, review, done")
	}
	if req.Recurrence != nil && *req.Recurrence != "" && !model.ValidRecurrence(*req.Recurrence) {
		return nil, model.ValidationError("recurrence_pattern must be one of: daily, weekly, monthly")
	}
	if req.RecurrenceInterval != nil && *req.RecurrenceInterval <= 0 {
		return nil, model.ValidationError("recurrence_interval must be positive")
	}

	task, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	wasCompleted := task.Completed

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
		if *req.Status == model.StatusDone {
			task.Completed = true
		}
	}
	if req.Tags != nil {
		task.Tags = normalizeTags(*req.Tags)
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Recurrence != nil {
		// Clearing the recurrence turns the task back into a one-shot.
		task.Recurrence = *req.Recurrence
	}
	if req.RecurrenceInterval != nil {
		task.RecurrenceInterval = *req.RecurrenceInterval
	}
	task.UpdatedAt = time.Now()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}

	metrics.TasksTotal.WithLabelValues("update").Inc()

	// Marking a recurring task done through an update spawns the next
	// occurrence, same as completing it directly.
	if !wasCompleted && task.Completed && task.Recurrence != "" {
		if err := s.spawnNextOccurrence(ctx, task); err != nil {
			return nil, err
		}
	}

	return task, nil
}

// CompleteTask marks a task completed. Completing an already-completed
// task succeeds and returns the unchanged record. Completing a recurring
// task also spawns its next occurrence; the idempotent early return means
// repeating the call never spawns a second one.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Completed {
		return task, nil
	}

	task.Completed = true
	task.Status = model.StatusDone
	task.UpdatedAt = time.Now()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}

	metrics.TasksTotal.WithLabelValues("complete").Inc()

	if task.Recurrence != "" {
		if err := s.spawnNextOccurrence(ctx, task); err != nil {
			return nil, err
		}
	}

	return task, nil
}

// spawnNextOccurrence inserts the next open occurrence of a recurring
// task: same title, description, priority, tags, and recurrence, a fresh
// id and timestamps, and no due date carried over.
func (s *TaskService) spawnNextOccurrence(ctx context.Context, prev *model.Task) error {
	now := time.Now()
	next := &model.Task{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		UserID:             prev.UserID,
		Title:              prev.Title,
		Description:        prev.Description,
		Priority:           prev.Priority,
		Status:             model.StatusReady,
		Tags:               prev.Tags,
		Recurrence:         prev.Recurrence,
		RecurrenceInterval: prev.RecurrenceInterval,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateTask(ctx, next); err != nil {
		return fmt.Errorf("spawn next occurrence: %w", err)
	}

	s.logger.Info("recurring task respawned",
		zap.String("task_id", prev.ID),
		zap.String("next_task_id", next.ID),
		zap.String("user_id", prev.UserID))
	metrics.TasksTotal.WithLabelValues("create").Inc()
	return nil
}

// DeleteTask removes a task. Deleting a missing or foreign task returns
// store.ErrNotFound, never a silent success.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.store.DeleteTask(ctx, ownerID, taskID); err != nil {
		return err
	}

	s.logger.Info("task deleted",
		zap.String("task_id", taskID),
		zap.String("user_id", ownerID))
	metrics.TasksTotal.WithLabelValues("delete").Inc()
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
