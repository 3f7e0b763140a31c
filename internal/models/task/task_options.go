package task

import (
	"time"
)

type TaskOption func(*Task)

// New builds an unsaved task owned by ownerID. Created/updated timestamps are set to now.
func New(ownerID int64, title string, now time.Time, opts ...TaskOption) *Task {
	t := &Task{
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func WithDescription(description *string) TaskOption {
	if description == nil {
		return nil
	}
	return func(task *Task) {
		task.Description = clonePtr(description)
	}
}

func WithCompleted(completed bool) TaskOption {
	return func(task *Task) {
		task.Completed = completed
	}
}

func WithDueAt(dueAt *time.Time) TaskOption {
	if dueAt == nil {
		return nil
	}
	return func(task *Task) {
		task.DueAt = clonePtr(dueAt)
	}
}

func WithReminderAt(reminderAt *time.Time) TaskOption {
	if reminderAt == nil {
		return nil
	}
	return func(task *Task) {
		task.ReminderAt = clonePtr(reminderAt)
	}
}
