package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

const taskColumns = `id, project_id, name, description, priority, start_date, due_date, completion_date, status, assignee_id, created_at, updated_at`

// CreateTask inserts a task.
func (s *txStore) CreateTask(ctx context.Context, task *domain.Task) error {
	const query = `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.tx.Exec(ctx, query,
		task.ID,
		task.ProjectID,
		task.Name,
		task.Description,
		string(task.Priority),
		domain.DateOf(task.StartDate),
		domain.DateOf(task.DueDate),
		timePtrToNil(task.CompletionDate),
		string(task.Status),
		nilIfEmpty(task.AssigneeID),
		task.CreatedAt,
		task.UpdatedAt,
	)
	return mapWriteError(err)
}

// UpdateTask persists every mutable task column.
func (s *txStore) UpdateTask(ctx context.Context, task *domain.Task) error {
	const query = `UPDATE tasks
		SET name = $2,
			description = $3,
			priority = $4,
			start_date = $5,
			due_date = $6,
			completion_date = $7,
			status = $8,
			assignee_id = $9,
			updated_at = $10
		WHERE id = $1`
	return expectAffected(s.tx.Exec(ctx, query,
		task.ID,
		task.Name,
		task.Description,
		string(task.Priority),
		domain.DateOf(task.StartDate),
		domain.DateOf(task.DueDate),
		timePtrToNil(task.CompletionDate),
		string(task.Status),
		nilIfEmpty(task.AssigneeID),
		task.UpdatedAt,
	))
}

// GetTaskByID fetches a task.
func (s *txStore) GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.tx.QueryRow(ctx, query, taskID))
	if err != nil {
		return nil, mapReadError(err)
	}
	return task, nil
}

// TaskNameExists reports whether another task in the project uses name, ignoring case.
func (s *txStore) TaskNameExists(ctx context.Context, projectID, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM tasks WHERE project_id = $1 AND LOWER(name) = LOWER($2) AND id <> $3
	)`
	var exists bool
	if err := s.tx.QueryRow(ctx, query, projectID, name, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListTasks returns tasks matching the filter.
func (s *txStore) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	var where whereBuilder
	if filter.ProjectID != "" {
		where.add("project_id = ?", filter.ProjectID)
	}
	if filter.AssigneeID != "" {
		where.add("assignee_id = ?", filter.AssigneeID)
	}
	if len(filter.Statuses) > 0 {
		where.add("status = ANY(?)", statusStrings(filter.Statuses))
	}
	query := `SELECT ` + taskColumns + ` FROM tasks` + where.sql() + ` ORDER BY created_at, id`
	query += where.page(filter.Page)

	rows, err := s.tx.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t                domain.Task
		priority, status string
		completion       sql.NullTime
		assignee         sql.NullString
	)
	if err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Name,
		&t.Description,
		&priority,
		&t.StartDate,
		&t.DueDate,
		&completion,
		&status,
		&assignee,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	t.StartDate = domain.DateOf(t.StartDate)
	t.DueDate = domain.DateOf(t.DueDate)
	t.CompletionDate = nullTimePtr(completion)
	if assignee.Valid {
		t.AssigneeID = assignee.String
	}
	return &t, nil
}
