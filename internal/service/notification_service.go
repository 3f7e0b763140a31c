package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/notification"
)

type NotificationService struct {
	repo  NotificationRepository
	cache NotificationCache
	now   func() time.Time
	group singleflight.Group
}

func NewNotificationService(repo NotificationRepository, opts ...Option) *NotificationService {
	o := buildOptions(opts)
	return &NotificationService{
		repo:  repo,
		cache: o.cache,
		now:   o.now,
	}
}

// ListForUser returns the caller's notifications in creation order. Concurrent
// cache misses for one user and generation share a single store read.
func (s *NotificationService) ListForUser(ctx context.Context, uid int64) ([]*notification.Notification, error) {
	if list, ok := s.cache.GetNotifications(ctx, uid); ok {
		return list, nil
	}

	// Read before the store query. Callers arriving after an invalidation see a
	// new generation and start their own flight instead of joining a stale one.
	gen, genErr := s.cache.Generation(ctx, uid)

	key := fmt.Sprintf("%d:%d", uid, gen)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Followers share this read, so one caller going away must not fail them all.
		shared := context.WithoutCancel(ctx)
		list, err := s.repo.ListNotificationsByUser(shared, uid)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			s.cache.SetNotifications(shared, uid, gen, list)
		}
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return v.([]*notification.Notification), nil
}

// Broadcast sends one notification to every non-admin user and returns how many
// were created. Calling it twice sends twice.
func (s *NotificationService) Broadcast(ctx context.Context, caller Identity, title, message string) (int, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if err := validateTitle("title", title); err != nil {
		return 0, err
	}
	if strings.TrimSpace(message) == "" {
		return 0, NewValidationError("message", "Message must not be empty.")
	}
	if utf8.RuneCountInString(message) > maxBroadcastMsgLen {
		return 0, NewValidationError("message", "Message must be at most 2000 characters.")
	}

	created, err := s.repo.BroadcastNotification(ctx, title, message, s.now())
	if err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}

	recipients := make([]int64, 0, len(created))
	for _, n := range created {
		recipients = append(recipients, n.UserID)
	}
	s.cache.Invalidate(ctx, recipients...)

	logger.Info("Service: broadcast sent", zap.Int64("admin_id", caller.UserID), zap.Int("recipients", len(created)))
	return len(created), nil
}
