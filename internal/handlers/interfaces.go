package handlers

import (
	"context"

	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	"todoReminder/internal/models/user"
	"todoReminder/internal/service"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, uid int64, in service.CreateTaskInput) (*task.Task, error)
	ListTasks(ctx context.Context, uid int64) ([]*task.Task, error)
	GetTask(ctx context.Context, uid, id int64) (*task.Task, error)
	PatchTask(ctx context.Context, uid, id int64, patch task.Patch) (*task.Task, error)
	ReplaceTask(ctx context.Context, uid, id int64, r task.Replacement) (*task.Task, error)
	DeleteTask(ctx context.Context, uid, id int64) error
}

type UserService interface {
	Register(ctx context.Context, username, password string) (*user.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Resolve(ctx context.Context, token string) (service.Identity, error)
	ListUsers(ctx context.Context, caller service.Identity) ([]*user.User, error)
	DeleteUser(ctx context.Context, caller service.Identity, id int64) error
}

type NotificationService interface {
	ListForUser(ctx context.Context, uid int64) ([]*notification.Notification, error)
	Broadcast(ctx context.Context, caller service.Identity, title, message string) (int, error)
}
