package service

import (
	"context"
	"time"

	"todoReminder/internal/auth"
	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	"todoReminder/internal/models/user"
)

type TaskRepository interface {
	CreateTask(ctx context.Context, t *task.Task) error
	GetTask(ctx context.Context, id int64) (*task.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error)
	UpdateTask(ctx context.Context, t *task.Task) error
	DeleteTask(ctx context.Context, id int64) error
	DeleteTasksByOwner(ctx context.Context, ownerID int64) (int64, error)
	HealthCheck(ctx context.Context) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id int64) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type NotificationRepository interface {
	ListNotificationsByUser(ctx context.Context, userID int64) ([]*notification.Notification, error)
	BroadcastNotification(ctx context.Context, title, message string, now time.Time) ([]*notification.Notification, error)
	DeleteNotificationsByUser(ctx context.Context, userID int64) (int64, error)
}

// NotificationCache fronts per-user notification lists. Implementations treat
// their own failures as misses.
//
// Every Invalidate bumps the user's generation. SetNotifications stores list
// only while the generation still equals gen, so a fill that read the store
// before an invalidation can never overwrite it.
type NotificationCache interface {
	GetNotifications(ctx context.Context, userID int64) ([]*notification.Notification, bool)
	Generation(ctx context.Context, userID int64) (int64, error)
	SetNotifications(ctx context.Context, userID, gen int64, list []*notification.Notification)
	Invalidate(ctx context.Context, userIDs ...int64)
}

type TokenManager interface {
	Issue(userID int64, isAdmin bool) (string, error)
	Parse(token string) (*auth.Claims, error)
}
