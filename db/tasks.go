// ABOUTME: Task database operations
// ABOUTME: Creates, fetches, lists and updates deal follow-up tasks
package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
)

const taskColumns = `id, deal_id, agent_id, title, description, type, priority, status,
	is_automated, trigger_type, due_date, created_at, updated_at, completed_at`

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var description, trigger sql.NullString
	var dueDate, completedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.DealID,
		&task.AgentID,
		&task.Title,
		&description,
		&task.Type,
		&task.Priority,
		&task.Status,
		&task.IsAutomated,
		&trigger,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.TriggerType = models.Trigger(trigger.String)
	task.DueDate = timePtr(dueDate)
	task.CompletedAt = timePtr(completedAt)

	return task, nil
}

// CreateTask validates the request and stores a new pending task.
func (s *Store) CreateTask(ctx context.Context, req models.TaskRequest) (*models.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	task := models.NewTask(req, req.Timestamp(time.Now().UTC()))

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID.String(),
		task.DealID.String(),
		task.AgentID.String(),
		task.Title,
		task.Description,
		string(task.Type),
		string(task.Priority),
		string(task.Status),
		task.IsAutomated,
		string(task.TriggerType),
		nullTime(task.DueDate),
		task.CreatedAt,
		task.UpdatedAt,
		nullTime(task.CompletedAt),
	)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// GetTask returns the task or (nil, nil) when it does not exist.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns tasks matching the filter, soonest due first with undated
// tasks last. A non-positive limit returns every match.
func (s *Store) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.DealID != uuid.Nil {
		conditions = append(conditions, "deal_id = ?")
		args = append(args, filter.DealID.String())
	}
	if filter.AgentID != uuid.Nil {
		conditions = append(conditions, "agent_id = ?")
		args = append(args, filter.AgentID.String())
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date IS NULL, due_date, created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// UpdateTask saves the task's mutable fields.
func (s *Store) UpdateTask(ctx context.Context, task *models.Task) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, type = ?, priority = ?, status = ?, due_date = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`,
		task.Title,
		task.Description,
		string(task.Type),
		string(task.Priority),
		string(task.Status),
		nullTime(task.DueDate),
		task.UpdatedAt.UTC(),
		nullTime(task.CompletedAt),
		task.ID.String(),
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}
