package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/migrations"
)

const slowQueryThreshold = 100 * time.Millisecond

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg Config) (*Storage, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: failed to parse database url", err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: PostgreSQL connections closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema over a dedicated connection.
func (s *Storage) Migrate(dir migrations.Direction) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	if err := migrations.Postgres(db, dir); err != nil {
		logger.Error("Repository: migration failed", err, zap.String("direction", string(dir)))
		return err
	}
	logger.Info("Repository: migrations applied", zap.String("direction", string(dir)))
	return nil
}

func logSlow(op string, start time.Time) {
	if d := time.Since(start); d > slowQueryThreshold {
		logger.Warn("Repository: slow query", zap.String("op", op), zap.Duration("ms", d))
	}
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
