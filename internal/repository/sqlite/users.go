package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/user"
	repo "todoReminder/internal/repository"
)

const userColumns = `id, username, password_hash, is_admin, created_at`

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	IsAdmin      bool   `db:"is_admin"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) toUser() *user.User {
	return &user.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		IsAdmin:      r.IsAdmin,
		CreatedAt:    fromNanos(r.CreatedAt),
	}
}

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	start := time.Now()
	defer logSlow("create user", start)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?)`,
		userToCreate.Username,
		userToCreate.PasswordHash,
		userToCreate.IsAdmin,
		toNanos(userToCreate.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		logger.Error("Repository: failed to create user", err, zap.String("username", userToCreate.Username))
		return fmt.Errorf("create user: %w", err)
	}

	userToCreate.ID, err = res.LastInsertId()
	return err
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get user", err)
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toUser(), nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		logger.Error("Repository: failed to list users", err)
		return nil, fmt.Errorf("list users: %w", err)
	}

	res := make([]*user.User, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toUser())
	}
	return res, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		logger.Error("Repository: failed to delete user", err, zap.Int64("user_id", id))
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}
