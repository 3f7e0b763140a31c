package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"todoReminder/internal/auth"
	"todoReminder/internal/logger"
	"todoReminder/internal/models/user"
	rep "todoReminder/internal/repository"
)

const (
	msgBadCredentials   = "Incorrect username or password"
	msgInvalidToken     = "Could not validate credentials"
	msgAdminRequired    = "Admin privileges required"
	msgCannotDeleteSelf = "Admins cannot delete their own account."
)

// Identity is everything the core knows about an authenticated caller.
type Identity struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

func requireAdmin(caller Identity) error {
	if !caller.IsAdmin {
		logger.Info("Service: admin operation refused", zap.Int64("user_id", caller.UserID))
		return NewForbidden(msgAdminRequired)
	}
	return nil
}

type UserService struct {
	users         UserRepository
	tasks         TaskRepository
	notifications NotificationRepository
	tokens        TokenManager
	cache         NotificationCache
	now           func() time.Time
}

func NewUserService(users UserRepository, tasks TaskRepository, notifications NotificationRepository,
	tokens TokenManager, opts ...Option) *UserService {
	o := buildOptions(opts)
	return &UserService{
		users:         users,
		tasks:         tasks,
		notifications: notifications,
		tokens:        tokens,
		cache:         o.cache,
		now:           o.now,
	}
}

func (s *UserService) Register(ctx context.Context, username, password string) (*user.User, error) {
	return s.create(ctx, username, password, false)
}

// CreateAdmin is the only way an admin account comes into existence.
func (s *UserService) CreateAdmin(ctx context.Context, username, password string) (*user.User, error) {
	return s.create(ctx, username, password, true)
}

func (s *UserService) create(ctx context.Context, username, password string, isAdmin bool) (*user.User, error) {
	normalized, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}

	_, err = s.users.GetUserByUsername(ctx, normalized)
	switch {
	case err == nil:
		return nil, NewConflict("username", "Username already registered")
	case !errors.Is(err, rep.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	newUser := &user.User{
		Username:     normalized,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, newUser); err != nil {
		if errors.Is(err, rep.ErrConflict) {
			return nil, NewConflict("username", "Username already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.Info("Service: user registered",
		zap.Int64("user_id", newUser.ID), zap.String("username", newUser.Username), zap.Bool("admin", isAdmin))
	return newUser, nil
}

// Login checks the credentials and issues a bearer token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return "", NewAuthError(msgBadCredentials)
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		logger.Error("Service: stored password hash is unreadable", err, zap.Int64("user_id", u.ID))
		return "", NewAuthError(msgBadCredentials)
	}
	if !ok {
		return "", NewAuthError(msgBadCredentials)
	}

	token, err := s.tokens.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Resolve maps a bearer token to the caller. The user is reloaded so tokens
// of deleted users stop working and the admin flag comes from the store.
func (s *UserService) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		logger.Debug("Service: token rejected", zap.Error(err))
		return Identity{}, NewAuthError(msgInvalidToken)
	}

	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, NewAuthError(msgInvalidToken)
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return Identity{}, NewAuthError(msgInvalidToken)
		}
		return Identity{}, fmt.Errorf("resolve user: %w", err)
	}

	return Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}, nil
}

func (s *UserService) ListUsers(ctx context.Context, caller Identity) ([]*user.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the user's tasks first, so the reminder scanner can no
// longer pick them up, then the notifications, then the account itself.
func (s *UserService) DeleteUser(ctx context.Context, caller Identity, id int64) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if caller.UserID == id {
		return NewValidationError("id", msgCannotDeleteSelf)
	}

	if _, err := s.users.GetUser(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound("User", id)
		}
		return fmt.Errorf("get user: %w", err)
	}

	tasksDeleted, err := s.tasks.DeleteTasksByOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user tasks: %w", err)
	}
	notificationsDeleted, err := s.notifications.DeleteNotificationsByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user notifications: %w", err)
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound("User", id)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.cache.Invalidate(ctx, id)

	logger.Info("Service: user deleted",
		zap.Int64("user_id", id),
		zap.Int64("admin_id", caller.UserID),
		zap.Int64("tasks", tasksDeleted),
		zap.Int64("notifications", notificationsDeleted))
	return nil
}
