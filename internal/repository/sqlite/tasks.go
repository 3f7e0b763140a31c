package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/task"
	repo "todoReminder/internal/repository"
)

const taskColumns = `id, owner_id, title, description, completed, created_at, updated_at, due_at, reminder_at, notified`

type taskRow struct {
	ID          int64          `db:"id"`
	OwnerID     int64          `db:"owner_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Completed   bool           `db:"completed"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
	DueAt       sql.NullInt64  `db:"due_at"`
	ReminderAt  sql.NullInt64  `db:"reminder_at"`
	Notified    bool           `db:"notified"`
}

func (r taskRow) toTask() *task.Task {
	t := &task.Task{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Title:      r.Title,
		Completed:  r.Completed,
		CreatedAt:  fromNanos(r.CreatedAt),
		UpdatedAt:  fromNanos(r.UpdatedAt),
		DueAt:      nanosPtr(r.DueAt),
		ReminderAt: nanosPtr(r.ReminderAt),
		Notified:   r.Notified,
	}
	if r.Description.Valid {
		d := r.Description.String
		t.Description = &d
	}
	return t
}

func toTasks(rows []taskRow) []*task.Task {
	res := make([]*task.Task, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toTask())
	}
	return res
}

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer logSlow("create task", start)

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM tasks WHERE owner_id = ? AND title = ?)`,
			taskToCreate.OwnerID, taskToCreate.Title)
		if err != nil {
			return fmt.Errorf("check title: %w", err)
		}
		if exists {
			return repo.ErrConflict
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO tasks
				(owner_id, title, description, completed, created_at, updated_at, due_at, reminder_at, notified)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			taskToCreate.OwnerID,
			taskToCreate.Title,
			nullString(taskToCreate.Description),
			taskToCreate.Completed,
			toNanos(taskToCreate.CreatedAt),
			toNanos(taskToCreate.UpdatedAt),
			nullNanos(taskToCreate.DueAt),
			nullNanos(taskToCreate.ReminderAt),
		)
		if err != nil {
			return err
		}
		taskToCreate.ID, err = res.LastInsertId()
		return err
	})

	switch {
	case err == nil:
		taskToCreate.Notified = false
		return nil
	case errors.Is(err, repo.ErrConflict):
		return err
	case isForeignKeyViolation(err):
		return repo.ErrNotFound
	default:
		logger.Error("Repository: failed to create task", err, zap.Int64("owner_id", taskToCreate.OwnerID))
		return fmt.Errorf("create task: %w", err)
	}
}

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()
	defer logSlow("get task", start)

	var row taskRow
	err := s.db.GetContext(ctx, &row, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("get task: %w", err)
	}
	return row.toTask(), nil
}

func (s *Storage) ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("list tasks", start)

	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.Int64("owner_id", ownerID))
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return toTasks(rows), nil
}

// UpdateTask leaves notified alone and reads the stored value back into taskToUpdate.
func (s *Storage) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer logSlow("update task", start)

	err := s.db.QueryRowxContext(ctx, `UPDATE tasks
			SET title = ?,
				description = ?,
				completed = ?,
				due_at = ?,
				reminder_at = ?,
				updated_at = ?
			WHERE id = ?
			RETURNING notified`,
		taskToUpdate.Title,
		nullString(taskToUpdate.Description),
		taskToUpdate.Completed,
		nullNanos(taskToUpdate.DueAt),
		nullNanos(taskToUpdate.ReminderAt),
		toNanos(taskToUpdate.UpdatedAt),
		taskToUpdate.ID,
	).Scan(&taskToUpdate.Notified)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Int64("task_id", id))
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteTasksByOwner(ctx context.Context, ownerID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = ?`, ownerID)
	if err != nil {
		logger.Error("Repository: failed to delete owner tasks", err, zap.Int64("owner_id", ownerID))
		return 0, fmt.Errorf("delete owner tasks: %w", err)
	}
	return res.RowsAffected()
}
