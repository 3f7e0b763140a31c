package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/task"
	rep "todoReminder/internal/repository"
)

// TaskService enforces ownership and validation for every task operation.
// A task owned by someone else is reported exactly like a missing one.
type TaskService struct {
	repo TaskRepository
	now  func() time.Time
}

func NewTaskService(repo TaskRepository, opts ...Option) *TaskService {
	o := buildOptions(opts)
	return &TaskService{
		repo: repo,
		now:  o.now,
	}
}

type CreateTaskInput struct {
	Title       string
	Description *string
	Completed   bool
	DueAt       *time.Time
	ReminderAt  *time.Time
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, uid int64, in CreateTaskInput) (*task.Task, error) {
	if err := validateTitle("title", in.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}

	newTask := task.New(uid, in.Title, s.now(),
		task.WithDescription(in.Description),
		task.WithCompleted(in.Completed),
		task.WithDueAt(in.DueAt),
		task.WithReminderAt(in.ReminderAt),
	)

	if err := s.repo.CreateTask(ctx, newTask); err != nil {
		switch {
		case errors.Is(err, rep.ErrConflict):
			logger.Info("Service: duplicate task title", zap.Int64("user_id", uid), zap.String("title", in.Title))
			return nil, NewConflict("title", "You already have a todo with this title.")
		case errors.Is(err, rep.ErrNotFound):
			return nil, NewNotFound("User", uid)
		default:
			return nil, fmt.Errorf("create task: %w", err)
		}
	}

	logger.Debug("Service: task created", zap.Int64("user_id", uid), zap.Int64("task_id", newTask.ID))
	return newTask, nil
}

func (s *TaskService) ListTasks(ctx context.Context, uid int64) ([]*task.Task, error) {
	tasks, err := s.repo.ListTasksByOwner(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, uid, id int64) (*task.Task, error) {
	return s.ownedTask(ctx, uid, id)
}

// PatchTask applies only the supplied fields. An empty patch still refreshes updated_at.
func (s *TaskService) PatchTask(ctx context.Context, uid, id int64, patch task.Patch) (*task.Task, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	existing, err := s.ownedTask(ctx, uid, id)
	if err != nil {
		return nil, err
	}

	existing.Apply(patch, s.now())
	return s.save(ctx, existing)
}

// ReplaceTask overwrites every replaceable field. Title uniqueness is only
// enforced at creation, so a replace may duplicate another task's title.
func (s *TaskService) ReplaceTask(ctx context.Context, uid, id int64, r task.Replacement) (*task.Task, error) {
	if err := validateTitle("title", r.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(r.Description); err != nil {
		return nil, err
	}

	existing, err := s.ownedTask(ctx, uid, id)
	if err != nil {
		return nil, err
	}

	existing.Replace(r, s.now())
	return s.save(ctx, existing)
}

// DeleteTask removes the task for good. Notifications that reference it are kept.
func (s *TaskService) DeleteTask(ctx context.Context, uid, id int64) error {
	if _, err := s.ownedTask(ctx, uid, id); err != nil {
		return err
	}

	if err := s.repo.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound("Todo", id)
		}
		return fmt.Errorf("delete task: %w", err)
	}

	logger.Debug("Service: task deleted", zap.Int64("user_id", uid), zap.Int64("task_id", id))
	return nil
}

func (s *TaskService) ownedTask(ctx context.Context, uid, id int64) (*task.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.Int64("task_id", id))
			return nil, NewNotFound("Todo", id)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	if t.OwnerID != uid {
		logger.Info("Service: task belongs to another user",
			zap.Int64("task_id", id), zap.Int64("user_id", uid))
		return nil, NewNotFound("Todo", id)
	}
	return t, nil
}

func (s *TaskService) save(ctx context.Context, t *task.Task) (*task.Task, error) {
	if err := s.repo.UpdateTask(ctx, t); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound("Todo", t.ID)
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}
