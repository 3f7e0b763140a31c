package inmemory

import (
	"context"
	"time"

	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	repo "todoReminder/internal/repository"
)

// FindDueUnnotified returns up to limit due tasks with id > afterID in ascending id order.
func (s *Storage) FindDueUnnotified(ctx context.Context, now time.Time, afterID int64, limit int) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	due := []*task.Task{}
	for _, t := range s.tasks {
		if t.ID > afterID && t.IsDue(now) {
			due = append(due, t.Clone())
		}
	}
	sortTasks(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// NotifyTask flips notified and records the reminder notification under one lock,
// after re-checking that the task still exists and is still due at now.
func (s *Storage) NotifyTask(ctx context.Context, taskID int64, now time.Time) (*notification.Notification, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || !t.IsDue(now) {
		return nil, repo.ErrStale
	}
	if _, ok := s.users[t.OwnerID]; !ok {
		return nil, repo.ErrStale
	}

	n := notification.ForReminder(t, now)
	s.insertNotification(n)

	t.Notified = true
	t.UpdatedAt = now
	return cloneNotification(n), nil
}
