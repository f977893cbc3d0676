package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/taskmate-ai/task-assistant/internal/model"
)

const taskColumns = `id, user_id, title, description, completed, priority, status, tags, due_date, recurrence_pattern, recurrence_interval, created_at, updated_at`

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Title, t.Description, boolInt(t.Completed),
		string(t.Priority), string(t.Status), joinTags(t.Tags),
		timePtrString(t.DueDate), string(t.Recurrence), t.RecurrenceInterval,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by id, scoped to its owner. Returns ErrNotFound
// both when no such row exists and when it belongs to another user.
func (s *Store) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?
	`, id, userID)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// ListTasks retrieves tasks for a user with optional filters. Filters that
// match nothing yield an empty slice, never an error.
func (s *Store) ListTasks(ctx context.Context, userID string, f model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}

	if f.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, boolInt(*f.Completed))
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(f.Priority))
	}
	if len(f.Tags) > 0 {
		// Match tasks carrying ANY of the requested tags.
		conds := make([]string, len(f.Tags))
		for i, tag := range f.Tags {
			conds[i] = `(',' || tags || ',') LIKE ?`
			args = append(args, "%,"+tag+",%")
		}
		query += ` AND (` + strings.Join(conds, " OR ") + `)`
	}

	query += ` ORDER BY created_at DESC, id DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask writes back a task's mutable fields, scoped to its owner.
func (s *Store) UpdateTask(ctx context.Context, t *model.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, priority = ?, status = ?,
		    tags = ?, due_date = ?, recurrence_pattern = ?, recurrence_interval = ?,
		    updated_at = ?
		WHERE id = ? AND user_id = ?
	`, t.Title, t.Description, boolInt(t.Completed), string(t.Priority),
		string(t.Status), joinTags(t.Tags), timePtrString(t.DueDate),
		string(t.Recurrence), t.RecurrenceInterval,
		formatTime(t.UpdatedAt), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res)
}

// DeleteTask removes a task, scoped to its owner. Deleting a missing or
// foreign task returns ErrNotFound, never a silent success.
func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (*model.Task, error) {
	var (
		t          model.Task
		completed  int
		priority   string
		status     string
		tags       string
		dueDate    sql.NullString
		recurrence string
		createdAt  string
		updatedAt  string
	)
	err := r.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &completed,
		&priority, &status, &tags, &dueDate, &recurrence, &t.RecurrenceInterval,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.Priority = model.Priority(priority)
	t.Status = model.Status(status)
	t.Tags = splitTags(tags)
	t.Recurrence = model.Recurrence(recurrence)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	if dueDate.Valid {
		due := parseTime(dueDate.String)
		t.DueDate = &due
	}
	return &t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func timePtrString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
