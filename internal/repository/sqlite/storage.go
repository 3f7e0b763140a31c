// Package sqlite is the single-file store. One open connection serializes all
// writers, which is what makes the check-then-insert paths atomic.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"todoReminder/internal/logger"
	"todoReminder/internal/migrations"
)

const slowQueryThreshold = 100 * time.Millisecond

type Storage struct {
	db *sqlx.DB
}

// New opens path (":memory:" for a throwaway database).
func New(ctx context.Context, path string) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		logger.Error("Repository: failed to open sqlite", err, zap.String("path", path))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	logger.Info("Repository: opened sqlite database", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		logger.Error("Repository: failed to close sqlite", err)
		return
	}
	logger.Info("Repository: sqlite closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Migrate(dir migrations.Direction) error {
	if err := migrations.SQLite(s.db.DB, dir); err != nil {
		logger.Error("Repository: migration failed", err, zap.String("direction", string(dir)))
		return err
	}
	logger.Info("Repository: migrations applied", zap.String("direction", string(dir)))
	return nil
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Storage) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func logSlow(op string, start time.Time) {
	if d := time.Since(start); d > slowQueryThreshold {
		logger.Warn("Repository: slow query", zap.String("op", op), zap.Duration("ms", d))
	}
}

func errorCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return errorCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	return errorCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// Timestamps are stored as unix nanoseconds so range comparisons are numeric.

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nanosPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
