package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agalitsyn/taskboard/internal/model"
)

type TaskStorage struct {
	db *sql.DB
}

func NewTaskStorage(db *sql.DB) *TaskStorage {
	return &TaskStorage{db: db}
}

const taskColumns = `id, title, description, assigned_to, assigned_by, deadline, status, priority, category, notes, completed_at, created_at, updated_at`

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task        model.Task
		completedAt sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AssignedTo,
		&task.AssignedBy,
		&task.Deadline,
		&task.Status,
		&task.Priority,
		&task.Category,
		&task.Notes,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		task.CompletedAt = completedAt.Time
	}
	return &task, nil
}

func (s *TaskStorage) CreateTask(ctx context.Context, task *model.Task) error {
	const query = `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.AssignedTo,
		task.AssignedBy,
		utc(task.Deadline),
		string(task.Status),
		string(task.Priority),
		task.Category,
		task.Notes,
		nullTime(task.CompletedAt),
		utc(task.CreatedAt),
		utc(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}
	return nil
}

func (s *TaskStorage) FetchTaskByID(ctx context.Context, id string) (*model.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}
	return task, nil
}

func (s *TaskStorage) FilterTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}

	if filter.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, filter.AssignedTo)
	}

	if len(filter.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(filter.Statuses)) + ")"
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}

	if !filter.DeadlineBefore.IsZero() {
		query += " AND deadline < ?"
		args = append(args, utc(filter.DeadlineBefore))
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not filter tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	const query = `UPDATE tasks
	SET title = ?, description = ?, deadline = ?, priority = ?, category = ?, notes = ?, updated_at = ?
	WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		utc(task.Deadline),
		string(task.Priority),
		task.Category,
		task.Notes,
		utc(task.UpdatedAt),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}
	return expectAffected(result, "task", task.ID)
}

func (s *TaskStorage) UpdateTaskStatus(ctx context.Context, task *model.Task, expected model.TaskStatus) error {
	const query = `UPDATE tasks
	SET status = ?, completed_at = ?, updated_at = ?
	WHERE id = ? AND status = ?`
	result, err := s.db.ExecContext(ctx, query,
		string(task.Status),
		nullTime(task.CompletedAt),
		utc(task.UpdatedAt),
		task.ID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("could not update task status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Tell a vanished task apart from a lost race.
	if _, err := s.FetchTaskByID(ctx, task.ID); err != nil {
		return err
	}
	return fmt.Errorf("task %s is no longer %s: %w", task.ID, expected, model.ErrConflict)
}

func (s *TaskStorage) RemoveTask(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("could not remove task: %w", err)
	}
	return expectAffected(result, "task", id)
}
