package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	repo "todoReminder/internal/repository"
)

func (s *Storage) FindDueUnnotified(ctx context.Context, now time.Time, afterID int64, limit int) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("find due reminders", start)

	query := `SELECT ` + taskColumns + ` FROM tasks
			WHERE notified = FALSE
				AND reminder_at IS NOT NULL
				AND reminder_at <= $1
				AND id > $2
			ORDER BY id
			LIMIT $3`

	rows, err := s.pool.Query(ctx, query, now, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}

	tasks, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		return nil, fmt.Errorf("scan due reminders: %w", err)
	}
	return tasks, nil
}

// NotifyTask flips notified and inserts the reminder notification in one transaction.
// The UPDATE re-checks the due condition under the row lock; if it no longer holds
// nothing is written and ErrStale is returned.
func (s *Storage) NotifyTask(ctx context.Context, taskID int64, now time.Time) (*notification.Notification, error) {
	start := time.Now()
	defer logSlow("notify task", start)

	var n *notification.Notification
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		t := &task.Task{}
		err := tx.QueryRow(ctx, `UPDATE tasks
				SET notified = TRUE, updated_at = $2
				WHERE id = $1
					AND notified = FALSE
					AND reminder_at IS NOT NULL
					AND reminder_at <= $2
				RETURNING id, owner_id, title`,
			taskID, now,
		).Scan(&t.ID, &t.OwnerID, &t.Title)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repo.ErrStale
			}
			return fmt.Errorf("mark notified: %w", err)
		}

		n = notification.ForReminder(t, now)
		return tx.QueryRow(ctx, `INSERT INTO notifications (title, message, task_id, user_id, created_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
			n.Title, n.Message, n.TaskID, n.UserID, n.CreatedAt,
		).Scan(&n.ID)
	})

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, repo.ErrStale):
		return nil, err
	case pgErrorCode(err) == codeForeignKeyViolation:
		return nil, repo.ErrStale
	default:
		return nil, fmt.Errorf("notify task %d: %w", taskID, err)
	}
}
