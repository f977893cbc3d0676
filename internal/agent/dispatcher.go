package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/llm"
	"github.com/taskmate-ai/task-assistant/internal/model"
	"github.com/taskmate-ai/task-assistant/internal/store"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
	"github.com/taskmate-ai/task-assistant/pkg/metrics"
)

// TaskOperations is the set of tenant-scoped task operations the
// dispatcher can invoke. Every method takes the owner's user id as its
// first argument; implementations must filter every query by it.
type TaskOperations interface {
	CreateTask(ctx context.Context, ownerID string, req *model.CreateTaskRequest) (*model.Task, error)
	ListTasks(ctx context.Context, ownerID string, f model.TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, req *model.UpdateTaskRequest) (*model.Task, error)
	CompleteTask(ctx context.Context, ownerID, taskID string) (*model.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// DispatchResult is the uniform tool outcome fed back to the model.
// Payload is always a JSON object of the shape {success, data|error}.
type DispatchResult struct {
	Payload json.RawMessage
	Success bool
}

// Dispatcher maps a model-issued tool call to one task operation. It is
// stateless: each Dispatch is a pure function of (tool name, arguments,
// owner). The owner identity always comes from the authenticated request;
// the argument structs deliberately have no owner field, so a "user_id"
// the model tries to smuggle into the arguments is dropped on unmarshal.
type Dispatcher struct {
	ops    TaskOperations
	logger *logger.Logger
}

// NewDispatcher creates a dispatcher over the given task operations.
func NewDispatcher(ops TaskOperations, log *logger.Logger) *Dispatcher {
	return &Dispatcher{ops: ops, logger: log}
}

// toolHandlers is the static name-to-handler mapping. No reflection, no
// auto-registration: a tool missing here does not exist.
var toolHandlers = map[string]func(*Dispatcher, context.Context, string, json.RawMessage) (any, error){
	ToolCreateTask:   (*Dispatcher).createTask,
	ToolListTasks:    (*Dispatcher).listTasks,
	ToolUpdateTask:   (*Dispatcher).updateTask,
	ToolCompleteTask: (*Dispatcher).completeTask,
	ToolDeleteTask:   (*Dispatcher).deleteTask,
}

// Dispatch executes one tool call on behalf of ownerID.
//
// Expected business failures (validation, not-found, unknown tool,
// malformed arguments) come back as a structured {success:false} payload
// for the model to read; only infrastructure faults return a non-nil
// error, which aborts the request.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID string, call llm.ToolCall) (DispatchResult, error) {
	handler, ok := toolHandlers[call.Name]
	if !ok {
		d.logger.Warn("unknown tool requested", zap.String("tool", call.Name))
		metrics.ToolCallsTotal.WithLabelValues(call.Name, "unknown").Inc()
		return failure(fmt.Sprintf("unknown tool: %s", call.Name)), nil
	}

	data, err := handler(d, ctx, ownerID, call.Arguments)
	if err != nil {
		var verr model.ValidationError
		switch {
		case errors.As(err, &verr):
			metrics.ToolCallsTotal.WithLabelValues(call.Name, "invalid").Inc()
			return failure(verr.Error()), nil
		case errors.Is(err, store.ErrNotFound):
			// "Doesn't exist" and "not yours" are the same answer.
			metrics.ToolCallsTotal.WithLabelValues(call.Name, "not_found").Inc()
			return failure("task not found"), nil
		case errors.As(err, new(argumentError)):
			metrics.ToolCallsTotal.WithLabelValues(call.Name, "bad_args").Inc()
			return failure(err.Error()), nil
		default:
			metrics.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
			return DispatchResult{}, fmt.Errorf("tool %s: %w", call.Name, err)
		}
	}

	metrics.ToolCallsTotal.WithLabelValues(call.Name, "ok").Inc()
	return success(data), nil
}

// argumentError marks a malformed argument bundle from the model.
type argumentError string

func (e argumentError) Error() string { return string(e) }

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return argumentError(fmt.Sprintf("malformed tool arguments: %v", err))
	}
	return nil
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, argumentError("invalid due_date format, use ISO 8601 (YYYY-MM-DD or YYYY-MM-DDTHH:MM:SSZ)")
}

func success(data any) DispatchResult {
	payload, err := json.Marshal(map[string]any{"success": true, "data": data})
	if err != nil {
		// Marshal of our own result types cannot realistically fail.
		payload = []byte(`{"success":true}`)
	}
	return DispatchResult{Payload: payload, Success: true}
}

func failure(msg string) DispatchResult {
	payload, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return DispatchResult{Payload: payload}
}

type createTaskArgs struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"due_date"`
}

func (d *Dispatcher) createTask(ctx context.Context, ownerID string, raw json.RawMessage) (any, error) {
	var args createTaskArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	due, err := parseDueDate(args.DueDate)
	if err != nil {
		return nil, err
	}
	return d.ops.CreateTask(ctx, ownerID, &model.CreateTaskRequest{
		Title:       args.Title,
		Description: args.Description,
		Priority:    model.Priority(args.Priority),
		Tags:        args.Tags,
		DueDate:     due,
	})
}

type listTasksArgs struct {
	Status   string   `json:"status"`
	Priority string   `json:"priority"`
	Tags     []string `json:"tags"`
	Limit    int      `json:"limit"`
}

func (d *Dispatcher) listTasks(ctx context.Context, ownerID string, raw json.RawMessage) (any, error) {
	var args listTasksArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	filter := model.TaskFilter{
		Priority: model.Priority(args.Priority),
		Tags:     args.Tags,
		Limit:    args.Limit,
	}
	switch args.Status {
	case "":
	case "pending":
		completed := false
		filter.Completed = &completed
	case "completed":
		completed := true
		filter.Completed = &completed
	default:
		return nil, argumentError("status must be one of: pending, completed")
	}

	tasks, err := d.ops.ListTasks(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tasks": tasks, "count": len(tasks)}, nil
}

type updateTaskArgs struct {
	TaskID      string    `json:"task_id"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	Tags        *[]string `json:"tags"`
	DueDate     *string   `json:"due_date"`
}

func (d *Dispatcher) updateTask(ctx context.Context, ownerID string, raw json.RawMessage) (any, error) {
	var args updateTaskArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TaskID == "" {
		return nil, argumentError("task_id is required")
	}

	req := &model.UpdateTaskRequest{
		Title:       args.Title,
		Description: args.Description,
		Tags:        args.Tags,
	}
	if args.Priority != nil {
		p := model.Priority(*args.Priority)
		req.Priority = &p
	}
	if args.Status != nil {
		s := model.Status(*args.Status)
		req.Status = &s
	}
	if args.DueDate != nil {
		due, err := parseDueDate(*args.DueDate)
		if err != nil {
			return nil, err
		}
		req.DueDate = due
	}

	return d.ops.UpdateTask(ctx, ownerID, args.TaskID, req)
}

type taskIDArgs struct {
	TaskID string `json:"task_id"`
}

func (d *Dispatcher) completeTask(ctx context.Context, ownerID string, raw json.RawMessage) (any, error) {
	var args taskIDArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TaskID == "" {
		return nil, argumentError("task_id is required")
	}
	return d.ops.CompleteTask(ctx, ownerID, args.TaskID)
}

func (d *Dispatcher) deleteTask(ctx context.Context, ownerID string, raw json.RawMessage) (any, error) {
	var args taskIDArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TaskID == "" {
		return nil, argumentError("task_id is required")
	}
	if err := d.ops.DeleteTask(ctx, ownerID, args.TaskID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}
