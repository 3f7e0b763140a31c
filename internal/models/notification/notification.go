package notification

import (
	"fmt"
	"time"

	"todoReminder/internal/models/task"
)

type Notification struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	TaskID    *int64    `json:"task_id" db:"task_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ForReminder builds the notification recorded when t's reminder fires.
func ForReminder(t *task.Task, now time.Time) *Notification {
	taskID := t.ID
	return &Notification{
		Title:     fmt.Sprintf("Reminder for task #%d", t.ID),
		Message:   fmt.Sprintf("Reminder: %s", t.Title),
		TaskID:    &taskID,
		UserID:    t.OwnerID,
		CreatedAt: now,
	}
}

// ForBroadcast builds one admin broadcast notification for userID.
func ForBroadcast(userID int64, title, message string, now time.Time) *Notification {
	return &Notification{
		Title:     title,
		Message:   message,
		UserID:    userID,
		CreatedAt: now,
	}
}
