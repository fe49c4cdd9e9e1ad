package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/orion/internal/services/tracker/task"
)

// CreateTask inserts a task under tk.ProjectID. An empty status stores todo.
func (t *txStore) CreateTask(ctx context.Context, tk task.Task) (task.Task, error) {
	tk.CreatedAt = t.stamp(tk.CreatedAt)
	if tk.Status == "" {
		tk.Status = task.StatusTodo
	}
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO tasks (title, status, project_id, created_at) VALUES (?, ?, ?, ?)`,
		tk.Title, string(tk.Status), tk.ProjectID, toMillis(tk.CreatedAt),
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return task.Task{}, fmt.Errorf("task id: %w", err)
	}
	tk.ID = id
	tk.CreatedAt = fromMillis(toMillis(tk.CreatedAt))
	return tk, nil
}

// ListTasksByProject returns the tasks of projectID ordered by id.
func (t *txStore) ListTasksByProject(ctx context.Context, projectID int64) ([]task.Task, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT id, title, status, project_id, created_at FROM tasks WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		var (
			tk        task.Task
			status    string
			createdAt int64
		)
		if err := rows.Scan(&tk.ID, &tk.Title, &status, &tk.ProjectID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tk.Status = task.Status(status)
		tk.CreatedAt = fromMillis(createdAt)
		tasks = append(tasks, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}
