package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func TestCreateTaskDefaults(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{
		Title: "  buy milk  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "buy milk", task.Title)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.StatusReady, task.Status)
	assert.Equal(t, "alice", task.UserID)
	assert.False(t, task.Completed)
	assert.NotEmpty(t, task.ID)
}

func TestCreateTaskValidation(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.CreateTaskRequest
	}{
		{"empty title", model.CreateTaskRequest{Title: ""}},
		{"whitespace title", model.CreateTaskRequest{Title: "   "}},
		{"title too long", model.CreateTaskRequest{Title: strings.Repeat("x", model.MaxTitleLength+1)}},
		{"description too long", model.CreateTaskRequest{
			Title:       "ok",
			Description: strings.Repeat("x", model.MaxDescriptionLength+1),
		}},
		{"bad priority", model.CreateTaskRequest{Title: "ok", Priority: "urgent"}},
		{"bad recurrence", model.CreateTaskRequest{Title: "ok", Recurrence: "yearly"}},
		{"negative recurrence interval", model.CreateTaskRequest{
			Title:              "ok",
			Recurrence:         model.RecurrenceDaily,
			RecurrenceInterval: -1,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, "alice", &tt.req)
			var verr model.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestUpdateTaskPartial(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{
		Title:       "original",
		Description: "keep me",
		Priority:    model.PriorityLow,
		Tags:        []string{"home"},
	})
	require.NoError(t, err)

	newTitle := "renamed"
	updated, err := svc.UpdateTask(ctx, "alice", task.ID, &model.UpdateTaskRequest{
		Title: &newTitle,
	})
	require.NoError(t, err)

	// Only the named field changes.
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, model.PriorityLow, updated.Priority)
	assert.Equal(t, []string{"home"}, updated.Tags)
	assert.False(t, updated.Completed)
}

func TestUpdateTaskEmptyRequest(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "something"})
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, "alice", task.ID, &model.UpdateTaskRequest{})
	var verr model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateTaskStatusDoneCompletes(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "finish report"})
	require.NoError(t, err)

	done := model.StatusDone
	updated, err := svc.UpdateTask(ctx, "alice", task.ID, &model.UpdateTaskRequest{Status: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, model.StatusDone, updated.Status)
}

func TestCompleteTaskIdempotent(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "once"})
	require.NoError(t, err)

	first, err := svc.CompleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.True(t, first.Completed)
	assert.Equal(t, model.StatusDone, first.Status)

	time.Sleep(5 * time.Millisecond)

	second, err := svc.CompleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.True(t, second.Completed)
	// Second completion is a no-op, not a rewrite.
	assert.True(t, second.UpdatedAt.Equal(first.UpdatedAt))
}

func TestCreateRecurringTaskDefaultsInterval(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{
		Title:      "water plants",
		Recurrence: model.RecurrenceWeekly,
	})
	require.NoError(t, err)

	assert.Equal(t, model.RecurrenceWeekly, task.Recurrence)
	assert.Equal(t, 1, task.RecurrenceInterval)
}

func TestCompleteRecurringTaskSpawnsNextOccurrence(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	due := time.Now().Add(24 * time.Hour)
	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{
		Title:              "standup notes",
		Description:        "post in channel",
		Priority:           model.PriorityHigh,
		Tags:               []string{"work"},
		DueDate:            &due,
		Recurrence:         model.RecurrenceDaily,
		RecurrenceInterval: 2,
	})
	require.NoError(t, err)

	completed, err := svc.CompleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)

	open := false
	remaining, err := svc.ListTasks(ctx, "alice", model.TaskFilter{Completed: &open})
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	next := remaining[0]
	assert.NotEqual(t, task.ID, next.ID)
	assert.Equal(t, "standup notes", next.Title)
	assert.Equal(t, "post in channel", next.Description)
	assert.Equal(t, model.PriorityHigh, next.Priority)
	assert.Equal(t, []string{"work"}, next.Tags)
	assert.Equal(t, model.RecurrenceDaily, next.Recurrence)
	assert.Equal(t, 2, next.RecurrenceInterval)
	assert.Equal(t, model.StatusReady, next.Status)
	assert.False(t, next.Completed)
	// The next occurrence starts without a due date.
	assert.Nil(t, next.DueDate)
}

func TestCompleteRecurringTaskTwiceSpawnsOnce(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{
		Title:      "take out trash",
		Recurrence: model.RecurrenceWeekly,
	})
	require.NoError(t, err)

	_, err = svc.CompleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, "alice", model.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCompleteOneShotTaskSpawnsNothing(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "one and done"})
	require.NoError(t, err)

	_, err = svc.CompleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, "alice", model.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateStatusDoneSpawnsNextOccurrence(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{
		Title:      "weekly report",
		Recurrence: model.RecurrenceWeekly,
	})
	require.NoError(t, err)

	done := model.StatusDone
	_, err = svc.UpdateTask(ctx, "alice", task.ID, &model.UpdateTaskRequest{Status: &done})
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, "alice", model.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateTaskClearRecurrence(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{
		Title:      "review budget",
		Recurrence: model.RecurrenceMonthly,
	})
	require.NoError(t, err)

	none := model.Recurrence("")
	updated, err := svc.UpdateTask(ctx, "alice", task.ID, &model.UpdateTaskRequest{Recurrence: &none})
	require.NoError(t, err)
	assert.Empty(t, updated.Recurrence)

	_, err = svc.CompleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, "alice", model.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTaskOperationsScopedToOwner(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", &model.CreateTaskRequest{Title: "mine"})
	require.NoError(t, err)

	_, err = svc.GetTask(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.CompleteTask(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteTask(ctx, "bob", task.ID), store.ErrNotFound)

	bobTasks, err := svc.ListTasks(ctx, "bob", model.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, bobTasks)

	aliceTasks, err := svc.ListTasks(ctx, "alice", model.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, aliceTasks, 1)
}

func TestDeleteTaskNotFound(t *testing.T) {
	svc := NewTaskService(newTestStore(t), testLogger())
	ctx := context.Background()

	err := svc.DeleteTask(ctx, "alice", "01937d3e-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
