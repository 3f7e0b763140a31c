package task

import (
	"time"
)

type Task struct {
	ID          int64      `json:"id" db:"id"`
	OwnerID     int64      `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DueAt       *time.Time `json:"due_date" db:"due_at"`
	ReminderAt  *time.Time `json:"reminder_at" db:"reminder_at"`
	Notified    bool       `json:"notified" db:"notified"`
}

// IsDue reports whether the reminder has fired at now and has not been notified yet.
func (t *Task) IsDue(now time.Time) bool {
	return t.ReminderAt != nil && !t.ReminderAt.After(now) && !t.Notified
}

// Clone returns a deep copy, so stores never hand out their own pointers.
func (t *Task) Clone() *Task {
	c := *t
	c.Description = clonePtr(t.Description)
	c.DueAt = clonePtr(t.DueAt)
	c.ReminderAt = clonePtr(t.ReminderAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
