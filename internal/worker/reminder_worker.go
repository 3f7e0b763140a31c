package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	rep "todoReminder/internal/repository"
)

const (
	defaultInterval  = 60 * time.Second
	defaultBatchSize = 100
)

type ReminderRepository interface {
	FindDueUnnotified(ctx context.Context, now time.Time, afterID int64, limit int) ([]*task.Task, error)
	NotifyTask(ctx context.Context, taskID int64, now time.Time) (*notification.Notification, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...int64)
}

// PassResult summarizes one scan. Due counts the tasks selected, each of which
// ends up in exactly one of Notified, Skipped (changed since selection) or Failed.
type PassResult struct {
	Due      int
	Notified int
	Skipped  int
	Failed   int
}

// ReminderWorker records a notification for every task whose reminder time has
// passed. At most one pass runs at a time; ticks that arrive during a pass are dropped.
type ReminderWorker struct {
	repo      ReminderRepository
	interval  time.Duration
	batchSize int
	now       func() time.Time
	cache     Invalidator
	tracer    trace.Tracer

	running atomic.Bool
	wg      sync.WaitGroup
}

type Option func(*ReminderWorker)

func WithClock(now func() time.Time) Option {
	return func(w *ReminderWorker) {
		if now != nil {
			w.now = now
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *ReminderWorker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *ReminderWorker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithInvalidator(cache Invalidator) Option {
	return func(w *ReminderWorker) {
		w.cache = cache
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(w *ReminderWorker) {
		if tracer != nil {
			w.tracer = tracer
		}
	}
}

func NewReminderWorker(repo ReminderRepository, opts ...Option) *ReminderWorker {
	w := &ReminderWorker{
		repo:      repo,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
		tracer:    otel.Tracer("todoReminder/worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs a pass every interval until ctx is done, then waits for the
// pass in flight to return.
func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.wg.Wait()

	logger.Info("Worker: reminder scanner started",
		zap.Duration("interval", w.interval), zap.Int("batch_size", w.batchSize))

	for {
		select {
		case <-ticker.C:
			w.Trigger(ctx)
		case <-ctx.Done():
			logger.Info("Worker: reminder scanner stopping")
			return
		}
	}
}

// Trigger starts a pass in the background and reports whether it did.
// It returns false without queuing anything when a pass is already running.
func (w *ReminderWorker) Trigger(ctx context.Context) bool {
	if !w.running.CompareAndSwap(false, true) {
		logger.Warn("Worker: previous reminder pass still running, tick skipped")
		return false
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)
		w.Check(ctx)
	}()
	return true
}

// Wait blocks until the pass started by Trigger, if any, has returned.
func (w *ReminderWorker) Wait() {
	w.wg.Wait()
}

// Check runs one pass synchronously. The clock is read once, so every task is
// judged against the same instant.
func (w *ReminderWorker) Check(ctx context.Context) (res PassResult) {
	ctx, span := w.tracer.Start(ctx, "reminder.pass")
	defer span.End()

	start := time.Now()
	now := w.now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Worker: reminder pass panicked", fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, "panic")
		}

		span.SetAttributes(
			attribute.Int("reminder.due", res.Due),
			attribute.Int("reminder.notified", res.Notified),
			attribute.Int("reminder.skipped", res.Skipped),
			attribute.Int("reminder.failed", res.Failed),
		)

		fields := []zap.Field{
			zap.Duration("ms", time.Since(start)),
			zap.Time("now", now),
			zap.Int("due", res.Due),
			zap.Int("notified", res.Notified),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		}
		if res.Due == 0 {
			logger.Debug("Worker: reminder pass finished", fields...)
			return
		}
		logger.Info("Worker: reminder pass finished", fields...)
	}()

	var afterID int64
	for {
		if ctx.Err() != nil {
			return res
		}

		batch, err := w.repo.FindDueUnnotified(ctx, now, afterID, w.batchSize)
		if err != nil {
			logger.Warn("Worker: failed to load due reminders", zap.Error(err), zap.Int64("after_id", afterID))
			span.RecordError(err)
			return res
		}
		if len(batch) == 0 {
			return res
		}

		res.Due += len(batch)
		owners := make(map[int64]struct{})
		for _, t := range batch {
			afterID = t.ID
			switch err := w.notify(ctx, t, now); {
			case err == nil:
				res.Notified++
				owners[t.OwnerID] = struct{}{}
			case errors.Is(err, rep.ErrStale):
				res.Skipped++
				logger.Debug("Worker: task changed since selection, skipped", zap.Int64("task_id", t.ID))
			default:
				res.Failed++
				logger.Error("Worker: failed to record reminder", err, zap.Int64("task_id", t.ID))
			}
		}
		w.invalidate(ctx, owners)

		if len(batch) < w.batchSize {
			return res
		}
	}
}

// notify isolates one task: an error or panic here never stops the pass.
func (w *ReminderWorker) notify(ctx context.Context, t *task.Task, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	n, err := w.repo.NotifyTask(ctx, t.ID, now)
	if err != nil {
		return err
	}

	logger.Info("Worker: reminder created",
		zap.Int64("task_id", t.ID),
		zap.Int64("owner_id", n.UserID),
		zap.Int64("notification_id", n.ID),
		zap.Timep("reminder_at", t.ReminderAt),
	)
	return nil
}

func (w *ReminderWorker) invalidate(ctx context.Context, owners map[int64]struct{}) {
	if w.cache == nil || len(owners) == 0 {
		return
	}
	ids := make([]int64, 0, len(owners))
	for id := range owners {
		ids = append(ids, id)
	}
	w.cache.Invalidate(ctx, ids...)
}
