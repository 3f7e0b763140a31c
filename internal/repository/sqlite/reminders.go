package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	repo "todoReminder/internal/repository"
)

func (s *Storage) FindDueUnnotified(ctx context.Context, now time.Time, afterID int64, limit int) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("find due reminders", start)

	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+taskColumns+` FROM tasks
			WHERE notified = 0
				AND reminder_at IS NOT NULL
				AND reminder_at <= ?
				AND id > ?
			ORDER BY id
			LIMIT ?`,
		toNanos(now), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	return toTasks(rows), nil
}

// NotifyTask flips notified and inserts the reminder notification in one transaction,
// or returns ErrStale when the task is no longer due at now.
func (s *Storage) NotifyTask(ctx context.Context, taskID int64, now time.Time) (*notification.Notification, error) {
	start := time.Now()
	defer logSlow("notify task", start)

	var n *notification.Notification
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		t := &task.Task{}
		err := tx.QueryRowxContext(ctx, `UPDATE tasks
				SET notified = 1, updated_at = ?
				WHERE id = ?
					AND notified = 0
					AND reminder_at IS NOT NULL
					AND reminder_at <= ?
				RETURNING id, owner_id, title`,
			toNanos(now), taskID, toNanos(now),
		).Scan(&t.ID, &t.OwnerID, &t.Title)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repo.ErrStale
			}
			return fmt.Errorf("mark notified: %w", err)
		}

		n = notification.ForReminder(t, now)
		return insertNotification(ctx, tx, n)
	})

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, repo.ErrStale):
		return nil, err
	case isForeignKeyViolation(err):
		return nil, repo.ErrStale
	default:
		return nil, fmt.Errorf("notify task %d: %w", taskID, err)
	}
}
