package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/service"
	"github.com/taskmate-ai/task-assistant/internal/store"
)

func taskRouter(st *store.Store) (chi.Router, *service.TaskService) {
	svc := service.NewTaskService(st, testLogger())
	h := NewTaskHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Use(asUser("alice"))
	r.Get("/tasks/{id}", h.Get)
	return r, svc
}

func TestGetTask(t *testing.T) {
	st := newHandlerStore(t)
	r, svc := taskRouter(st)

	task, err := svc.CreateTask(context.Background(), "alice", &model.CreateTaskRequest{Title: "ship it"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+task.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTaskNotFound(t *testing.T) {
	r, _ := taskRouter(newHandlerStore(t))

	req := httptest.NewRequest(http.MethodGet, "/tasks/01937d3e-0000-7000-8000-000000000000", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", errorBody(t, rec))
}

func TestGetTaskStorageFault(t *testing.T) {
	st := newHandlerStore(t)
	r, _ := taskRouter(st)
	require.NoError(t, st.Close())

	req := httptest.NewRequest(http.MethodGet, "/tasks/01937d3e-0000-7000-8000-000000000000", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to get task", errorBody(t, rec))
}

func TestGetTaskInvalidID(t *testing.T) {
	r, _ := taskRouter(newHandlerStore(t))

	req := httptest.NewRequest(http.MethodGet, "/tasks/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
