package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/llm"
	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
)

// fakeOps records the owner id each operation was called with.
type fakeOps struct {
	lastOwner string
	lastReq   *model.CreateTaskRequest
	err       error
}

func (f *fakeOps) CreateTask(ctx context.Context, ownerID string, req *model.CreateTaskRequest) (*model.Task, error) {
	f.lastOwner = ownerID
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: "t1", UserID: ownerID, Title: req.Title}, nil
}

func (f *fakeOps) ListTasks(ctx context.Context, ownerID string, _ model.TaskFilter) ([]model.Task, error) {
	f.lastOwner = ownerID
	return nil, f.err
}

func (f *fakeOps) UpdateTask(ctx context.Context, ownerID, taskID string, _ *model.UpdateTaskRequest) (*model.Task, error) {
	f.lastOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: taskID, UserID: ownerID}, nil
}

func (f *fakeOps) CompleteTask(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	f.lastOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: taskID, UserID: ownerID, Completed: true}, nil
}

func (f *fakeOps) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	f.lastOwner = ownerID
	return f.err
}

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

type resultPayload struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decodeResult(t *testing.T, res DispatchResult) resultPayload {
	t.Helper()
	var p resultPayload
	require.NoError(t, json.Unmarshal(res.Payload, &p))
	return p
}

func TestDispatchInjectsAuthenticatedOwner(t *testing.T) {
	ops := &fakeOps{}
	d := NewDispatcher(ops, testLogger())

	// The model tries to act as someone else; the smuggled user_id has no
	// field to land in and the authenticated owner is used instead.
	res, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
		ID:        "c1",
		Name:      ToolCreateTask,
		Arguments: json.RawMessage(`{"title":"sneaky","user_id":"bob"}`),
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "alice", ops.lastOwner)
	assert.Equal(t, "sneaky", ops.lastReq.Title)
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(&fakeOps{}, testLogger())

	res, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
		Name:      "drop_database",
		Arguments: json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	p := decodeResult(t, res)
	assert.False(t, p.Success)
	assert.Contains(t, p.Error, "unknown tool")
}

func TestDispatchMalformedArguments(t *testing.T) {
	d := NewDispatcher(&fakeOps{}, testLogger())

	res, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
		Name:      ToolCreateTask,
		Arguments: json.RawMessage(`{"title":`),
	})
	require.NoError(t, err)

	p := decodeResult(t, res)
	assert.False(t, p.Success)
	assert.Contains(t, p.Error, "malformed tool arguments")
}

func TestDispatchMissingTaskID(t *testing.T) {
	d := NewDispatcher(&fakeOps{}, testLogger())

	for _, tool := range []string{ToolUpdateTask, ToolCompleteTask, ToolDeleteTask} {
		res, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
			Name:      tool,
			Arguments: json.RawMessage(`{}`),
		})
		require.NoError(t, err, tool)

		p := decodeResult(t, res)
		assert.False(t, p.Success, tool)
		assert.Contains(t, p.Error, "task_id is required", tool)
	}
}

func TestDispatchNotFoundBecomesFailurePayload(t *testing.T) {
	d := NewDispatcher(&fakeOps{err: store.ErrNotFound}, testLogger())

	res, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
		Name:      ToolCompleteTask,
		Arguments: json.RawMessage(`{"task_id":"01937d3e-0000-7000-8000-000000000000"}`),
	})
	require.NoError(t, err)

	p := decodeResult(t, res)
	assert.False(t, p.Success)
	assert.Equal(t, "task not found", p.Error)
}

func TestDispatchValidationBecomesFailurePayload(t *testing.T) {
	d := NewDispatcher(&fakeOps{err: model.ValidationError("title is required")}, testLogger())

	res, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
		Name:      ToolCreateTask,
		Arguments: json.RawMessage(`{"title":""}`),
	})
	require.NoError(t, err)

	p := decodeResult(t, res)
	assert.False(t, p.Success)
	assert.Equal(t, "title is required", p.Error)
}

func TestDispatchInfrastructureFaultPropagates(t *testing.T) {
	d := NewDispatcher(&fakeOps{err: errors.New("disk on fire")}, testLogger())

	_, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
		Name:      ToolListTasks,
		Arguments: json.RawMessage(`{}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestDispatchListStatusFilter(t *testing.T) {
	d := NewDispatcher(&fakeOps{}, testLogger())

	res, err := d.Dispatch(context.Background(), "alice", llm.ToolCall{
		Name:      ToolListTasks,
		Arguments: json.RawMessage(`{"status":"someday"}`),
	})
	require.NoError(t, err)

	p := decodeResult(t, res)
	assert.False(t, p.Success)
	assert.Contains(t, p.Error, "status must be one of")
}
