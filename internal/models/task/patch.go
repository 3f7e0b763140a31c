package task

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional distinguishes a field that was not supplied from one supplied as null.
//
//	Set == false           -> field absent, leave as is
//	Set == true, !Valid    -> explicit null, clear the field
//	Set == true, Valid     -> replace with Value
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Valid = false
		var zero T
		o.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr converts a supplied value to a pointer, nil for explicit null.
func (o Optional[T]) Ptr() *T {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// Patch is a partial update: only Set fields are applied.
type Patch struct {
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	Completed   Optional[bool]      `json:"completed"`
	DueAt       Optional[time.Time] `json:"due_date"`
	ReminderAt  Optional[time.Time] `json:"reminder_at"`
}

func (p Patch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set && !p.DueAt.Set && !p.ReminderAt.Set
}

// Apply merges the supplied fields into t and refreshes UpdatedAt.
// Id, owner, created-at and the notified flag are never touched.
func (t *Task) Apply(p Patch, now time.Time) {
	if p.Title.Set && p.Title.Valid {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Ptr()
	}
	if p.Completed.Set && p.Completed.Valid {
		t.Completed = p.Completed.Value
	}
	if p.DueAt.Set {
		t.DueAt = p.DueAt.Ptr()
	}
	if p.ReminderAt.Set {
		t.ReminderAt = p.ReminderAt.Ptr()
	}
	t.UpdatedAt = now
}

// Replacement carries every replaceable field of a full update.
type Replacement struct {
	Title       string
	Description *string
	Completed   bool
	DueAt       *time.Time
	ReminderAt  *time.Time
}

// Replace overwrites all replaceable fields; nil optionals become unset.
func (t *Task) Replace(r Replacement, now time.Time) {
	t.Title = r.Title
	t.Description = clonePtr(r.Description)
	t.Completed = r.Completed
	t.DueAt = clonePtr(r.DueAt)
	t.ReminderAt = clonePtr(r.ReminderAt)
	t.UpdatedAt = now
}
