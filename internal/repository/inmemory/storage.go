package inmemory

import (
	"context"
	"sync"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	"todoReminder/internal/models/user"
)

// Storage keeps users, tasks and notifications in maps guarded by one mutex.
// Every method copies records in and out, callers never share pointers with the store.
type Storage struct {
	mtx *sync.RWMutex

	users         map[int64]*user.User
	tasks         map[int64]*task.Task
	notifications map[int64]*notification.Notification

	lastUserID         int64
	lastTaskID         int64
	lastNotificationID int64
}

func New() *Storage {
	return &Storage{
		mtx:           &sync.RWMutex{},
		users:         make(map[int64]*user.User),
		tasks:         make(map[int64]*task.Task),
		notifications: make(map[int64]*notification.Notification),
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: in-memory storage is always healthy")
	return nil
}

func (s *Storage) Close() {}
