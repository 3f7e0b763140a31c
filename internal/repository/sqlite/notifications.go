package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/notification"
)

const notificationColumns = `id, title, message, task_id, user_id, created_at`

type notificationRow struct {
	ID        int64         `db:"id"`
	Title     string        `db:"title"`
	Message   string        `db:"message"`
	TaskID    sql.NullInt64 `db:"task_id"`
	UserID    int64         `db:"user_id"`
	CreatedAt int64         `db:"created_at"`
}

func (r notificationRow) toNotification() *notification.Notification {
	n := &notification.Notification{
		ID:        r.ID,
		Title:     r.Title,
		Message:   r.Message,
		UserID:    r.UserID,
		CreatedAt: fromNanos(r.CreatedAt),
	}
	if r.TaskID.Valid {
		id := r.TaskID.Int64
		n.TaskID = &id
	}
	return n
}

func (s *Storage) ListNotificationsByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	start := time.Now()
	defer logSlow("list notifications", start)

	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		logger.Error("Repository: failed to list notifications", err, zap.Int64("user_id", userID))
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	res := make([]*notification.Notification, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toNotification())
	}
	return res, nil
}

// BroadcastNotification inserts one notification per non-admin user in one transaction.
func (s *Storage) BroadcastNotification(ctx context.Context, title, message string, now time.Time) ([]*notification.Notification, error) {
	start := time.Now()
	defer logSlow("broadcast", start)

	var created []*notification.Notification
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var recipients []int64
		if err := tx.SelectContext(ctx, &recipients, `SELECT id FROM users WHERE is_admin = 0 ORDER BY id`); err != nil {
			return fmt.Errorf("select recipients: %w", err)
		}

		created = make([]*notification.Notification, 0, len(recipients))
		for _, userID := range recipients {
			n := notification.ForBroadcast(userID, title, message, now)
			if err := insertNotification(ctx, tx, n); err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	})
	if err != nil {
		logger.Error("Repository: broadcast failed", err)
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	return created, nil
}

func (s *Storage) DeleteNotificationsByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, userID)
	if err != nil {
		logger.Error("Repository: failed to delete notifications", err, zap.Int64("user_id", userID))
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.RowsAffected()
}

func insertNotification(ctx context.Context, tx *sqlx.Tx, n *notification.Notification) error {
	var taskID sql.NullInt64
	if n.TaskID != nil {
		taskID = sql.NullInt64{Int64: *n.TaskID, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (title, message, task_id, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.Title, n.Message, taskID, n.UserID, toNanos(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return err
}
