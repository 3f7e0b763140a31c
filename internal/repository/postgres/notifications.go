package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/notification"
)

const notificationColumns = `id, title, message, task_id, user_id, created_at`

func (s *Storage) ListNotificationsByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	start := time.Now()
	defer logSlow("list notifications", start)

	rows, err := s.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		logger.Error("Repository: failed to list notifications", err, zap.Int64("user_id", userID))
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	res, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[notification.Notification])
	if err != nil {
		return nil, fmt.Errorf("scan notifications: %w", err)
	}
	return res, nil
}

// BroadcastNotification inserts one row per non-admin user in a single statement.
func (s *Storage) BroadcastNotification(ctx context.Context, title, message string, now time.Time) ([]*notification.Notification, error) {
	start := time.Now()
	defer logSlow("broadcast", start)

	query := `INSERT INTO notifications (title, message, task_id, user_id, created_at)
			SELECT $1, $2, NULL, id, $3 FROM users WHERE is_admin = FALSE ORDER BY id
			RETURNING ` + notificationColumns

	rows, err := s.pool.Query(ctx, query, title, message, now)
	if err != nil {
		logger.Error("Repository: broadcast failed", err)
		return nil, fmt.Errorf("broadcast: %w", err)
	}

	res, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[notification.Notification])
	if err != nil {
		logger.Error("Repository: broadcast failed", err)
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	return res, nil
}

func (s *Storage) DeleteNotificationsByUser(ctx context.Context, userID int64) (int64, error) {
	start := time.Now()
	defer logSlow("delete notifications", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		logger.Error("Repository: failed to delete notifications", err, zap.Int64("user_id", userID))
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
