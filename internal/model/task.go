// Package model defines data structures for the task assistant.
package model

import (
	"time"
)

// Priority is a task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is a task's Kanban column.
type Status string

const (
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusReady, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Recurrence is a task's repeat cadence. A task with an empty recurrence
// is one-shot; a recurring task spawns its next occurrence when completed.
type Recurrence string

const (
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ValidRecurrence reports whether r is a known recurrence pattern.
func ValidRecurrence(r Recurrence) bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

const (
	// MaxTitleLength bounds task titles.
	MaxTitleLength = 200
	// MaxDescriptionLength bounds task descriptions.
	MaxDescriptionLength = 1000
)

// Task represents a todo item owned by a single user.
type Task struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Completed          bool       `json:"completed"`
	Priority           Priority   `json:"priority"`
	Status             Status     `json:"status"`
	Tags               []string   `json:"tags"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	Recurrence         Recurrence `json:"recurrence_pattern,omitempty"`
	RecurrenceInterval int        `json:"recurrence_interval,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CreateTaskRequest is the request to create a new task.
type CreateTaskRequest struct {
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Priority           Priority   `json:"priority,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	Recurrence         Recurrence `json:"recurrence_pattern,omitempty"`
	RecurrenceInterval int        `json:"recurrence_interval,omitempty"`
}

// UpdateTaskRequest is a partial update: nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title              *string     `json:"title,omitempty"`
	Description        *string     `json:"description,omitempty"`
	Priority           *Priority   `json:"priority,omitempty"`
	Status             *Status     `json:"status,omitempty"`
	Tags               *[]string   `json:"tags,omitempty"`
	DueDate            *time.Time  `json:"due_date,omitempty"`
	Recurrence         *Recurrence `json:"recurrence_pattern,omitempty"`
	RecurrenceInterval *int        `json:"recurrence_interval,omitempty"`
}

// Empty reports whether the update carries no changes.
func (r *UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil &&
		r.Status == nil && r.Tags == nil && r.DueDate == nil &&
		r.Recurrence == nil && r.RecurrenceInterval == nil
}

// TaskFilter narrows a task listing. Zero values mean no filtering.
type TaskFilter struct {
	Completed *bool
	Priority  Priority
	Tags      []string
	Limit     int
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks []Task `json:"tasks"`
	Count int    `json:"count"`
}
