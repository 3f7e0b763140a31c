package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/user"
	repo "todoReminder/internal/repository"
)

const userColumns = `id, username, password_hash, is_admin, created_at`

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	start := time.Now()
	defer logSlow("create user", start)

	query := `INSERT INTO users (username, password_hash, is_admin, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		userToCreate.Username,
		userToCreate.PasswordHash,
		userToCreate.IsAdmin,
		userToCreate.CreatedAt,
	).Scan(&userToCreate.ID)

	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			return repo.ErrConflict
		}
		logger.Error("Repository: failed to create user", err, zap.String("username", userToCreate.Username))
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*user.User, error) {
	start := time.Now()
	defer logSlow("get user", start)

	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		logger.Error("Repository: failed to get user", err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[user.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	start := time.Now()
	defer logSlow("list users", start)

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		logger.Error("Repository: failed to list users", err)
		return nil, fmt.Errorf("list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[user.User])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	start := time.Now()
	defer logSlow("delete user", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete user", err, zap.Int64("user_id", id))
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
