package inmemory

import (
	"context"
	"sort"
	"time"

	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/user"
)

func (s *Storage) ListNotificationsByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*notification.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID {
			res = append(res, cloneNotification(n))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// BroadcastNotification stores one notification per non-admin user in a single critical section.
func (s *Storage) BroadcastNotification(ctx context.Context, title, message string, now time.Time) ([]*notification.Notification, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	recipients := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		if !u.IsAdmin {
			recipients = append(recipients, u)
		}
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].ID < recipients[j].ID })

	created := make([]*notification.Notification, 0, len(recipients))
	for _, u := range recipients {
		n := notification.ForBroadcast(u.ID, title, message, now)
		s.insertNotification(n)
		created = append(created, cloneNotification(n))
	}
	return created, nil
}

func (s *Storage) DeleteNotificationsByUser(ctx context.Context, userID int64) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var deleted int64
	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

// insertNotification assigns an id and stores a copy. Caller holds the write lock.
func (s *Storage) insertNotification(n *notification.Notification) {
	s.lastNotificationID++
	n.ID = s.lastNotificationID
	s.notifications[n.ID] = cloneNotification(n)
}

func cloneNotification(n *notification.Notification) *notification.Notification {
	c := *n
	if n.TaskID != nil {
		id := *n.TaskID
		c.TaskID = &id
	}
	return &c
}
