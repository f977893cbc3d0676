package agent

import (
	"encoding/json"

	"github.com/taskmate-ai/task-assistant/internal/llm"
)

// Tool names. The set is fixed; adding a tool means adding a schema here,
// a typed handler in the dispatcher, and nothing else.
const (
	ToolCreateTask   = "create_task"
	ToolListTasks    = "list_tasks"
	ToolUpdateTask   = "update_task"
	ToolCompleteTask = "complete_task"
	ToolDeleteTask   = "delete_task"
)

// ToolCatalogue returns the tool schema handed to the model. The owner
// identity is never part of any schema: the dispatcher injects it from the
// authenticated request, so the model has nothing to say about whose data
// is touched.
func ToolCatalogue() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolCreateTask,
			Description: "Create a new todo task. Use when the user wants to add or create a task; extract title, priority, due date, and tags from their message.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"title": {"type": "string", "description": "Task title (required, max 200 characters)"},
					"description": {"type": "string", "description": "Task description (optional, max 1000 characters)"},
					"priority": {"type": "string", "enum": ["low", "medium", "high"], "description": "Task priority (default: medium)"},
					"tags": {"type": "array", "items": {"type": "string"}, "description": "Optional list of tags"},
					"due_date": {"type": "string", "description": "Optional due date in ISO 8601 format (YYYY-MM-DD or YYYY-MM-DDTHH:MM:SSZ)"}
				},
				"required": ["title"]
			}`),
		},
		{
			Name:        ToolListTasks,
			Description: "Retrieve the user's tasks with optional filters. Use when the user wants to see, view, or list their tasks.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"status": {"type": "string", "enum": ["pending", "completed"], "description": "Filter by completion status"},
					"priority": {"type": "string", "enum": ["low", "medium", "high"], "description": "Filter by priority"},
					"tags": {"type": "array", "items": {"type": "string"}, "description": "Match tasks carrying any of these tags"},
					"limit": {"type": "integer", "description": "Maximum number of tasks to return (default 20, max 100)"}
				}
			}`),
		},
		{
			Name:        ToolUpdateTask,
			Description: "Update an existing task. Only the provided fields change; everything else is left as is.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task_id": {"type": "string", "description": "ID of the task to update"},
					"title": {"type": "string", "description": "New title (max 200 characters)"},
					"description": {"type": "string", "description": "New description (max 1000 characters)"},
					"status": {"type": "string", "enum": ["ready", "in_progress", "review", "done"], "description": "New board status"},
					"priority": {"type": "string", "enum": ["low", "medium", "high"], "description": "New priority"},
					"tags": {"type": "array", "items": {"type": "string"}, "description": "Replacement tag list"},
					"due_date": {"type": "string", "description": "New due date in ISO 8601 format"}
				},
				"required": ["task_id"]
			}`),
		},
		{
			Name:        ToolCompleteTask,
			Description: "Mark a task as completed. Use when the user wants to finish, complete, or mark a task done.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task_id": {"type": "string", "description": "ID of the task to complete"}
				},
				"required": ["task_id"]
			}`),
		},
		{
			Name:        ToolDeleteTask,
			Description: "Delete a task permanently. Use only when the user explicitly wants a task removed.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task_id": {"type": "string", "description": "ID of the task to delete"}
				},
				"required": ["task_id"]
			}`),
		},
	}
}
