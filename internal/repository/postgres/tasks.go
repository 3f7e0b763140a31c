package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/task"
	repo "todoReminder/internal/repository"
)

const taskColumns = `id, owner_id, title, description, completed, created_at, updated_at, due_at, reminder_at, notified`

// CreateTask inserts the task unless the owner already has one with the same title.
// The owner's advisory lock serializes concurrent creates for that owner.
func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer logSlow("create task", start)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, taskToCreate.OwnerID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM tasks WHERE owner_id = $1 AND title = $2)`,
			taskToCreate.OwnerID, taskToCreate.Title,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check title: %w", err)
		}
		if exists {
			return repo.ErrConflict
		}

		query := `INSERT INTO tasks
				(owner_id, title, description, completed, created_at, updated_at, due_at, reminder_at, notified)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
				RETURNING id`

		return tx.QueryRow(ctx, query,
			taskToCreate.OwnerID,
			taskToCreate.Title,
			taskToCreate.Description,
			taskToCreate.Completed,
			taskToCreate.CreatedAt,
			taskToCreate.UpdatedAt,
			taskToCreate.DueAt,
			taskToCreate.ReminderAt,
		).Scan(&taskToCreate.ID)
	})

	switch {
	case err == nil:
		taskToCreate.Notified = false
		return nil
	case errors.Is(err, repo.ErrConflict):
		return err
	case pgErrorCode(err) == codeForeignKeyViolation:
		return repo.ErrNotFound
	default:
		logger.Error("Repository: failed to create task", err, zap.Int64("owner_id", taskToCreate.OwnerID))
		return fmt.Errorf("create task: %w", err)
	}
}

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()
	defer logSlow("get task", start)

	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to get task", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("get task: %w", err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to scan task", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}

func (s *Storage) ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("list tasks", start)

	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.Int64("owner_id", ownerID))
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask writes every mutable field except notified, which belongs to the
// reminder scanner. The stored notified value is read back into taskToUpdate.
func (s *Storage) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer logSlow("update task", start)

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				completed = $3,
				due_at = $4,
				reminder_at = $5,
				updated_at = $6
			WHERE id = $7
			RETURNING notified`

	err := s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Completed,
		taskToUpdate.DueAt,
		taskToUpdate.ReminderAt,
		taskToUpdate.UpdatedAt,
		taskToUpdate.ID,
	).Scan(&taskToUpdate.Notified)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: failed to update task", err, zap.Int64("task_id", taskToUpdate.ID))
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	start := time.Now()
	defer logSlow("delete task", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Int64("task_id", id))
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteTasksByOwner(ctx context.Context, ownerID int64) (int64, error) {
	start := time.Now()
	defer logSlow("delete owner tasks", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, ownerID)
	if err != nil {
		logger.Error("Repository: failed to delete owner tasks", err, zap.Int64("owner_id", ownerID))
		return 0, fmt.Errorf("delete owner tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}
