package dto

import (
	"time"

	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	"todoReminder/internal/models/user"
)

type CreateTodoRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ReminderAt  *time.Time `json:"reminder_at,omitempty"`
}

// ReplaceTodoRequest is the full-update body. Omitted optional fields are cleared.
type ReplaceTodoRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ReminderAt  *time.Time `json:"reminder_at,omitempty"`
}

func (r ReplaceTodoRequest) ToReplacement() task.Replacement {
	return task.Replacement{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		DueAt:       r.DueDate,
		ReminderAt:  r.ReminderAt,
	}
}

type TodoResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DueDate     *time.Time `json:"due_date"`
	ReminderAt  *time.Time `json:"reminder_at"`
	Notified    bool       `json:"notified"`
	OwnerID     int64      `json:"owner_id"`
}

func FromTask(t *task.Task) TodoResponse {
	return TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DueDate:     t.DueAt,
		ReminderAt:  t.ReminderAt,
		Notified:    t.Notified,
		OwnerID:     t.OwnerID,
	}
}

func FromTaskList(tasks []*task.Task) []TodoResponse {
	result := make([]TodoResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type NotificationResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	TaskID    *int64    `json:"task_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func FromNotificationList(ns []*notification.Notification) []NotificationResponse {
	result := make([]NotificationResponse, len(ns))
	for i, n := range ns {
		result[i] = NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			TaskID:    n.TaskID,
			UserID:    n.UserID,
			CreatedAt: n.CreatedAt,
		}
	}
	return result
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func FromUserList(users []*user.User) []UserResponse {
	result := make([]UserResponse, len(users))
	for i, u := range users {
		result[i] = UserResponse{
			ID:        u.ID,
			Username:  u.Username,
			IsAdmin:   u.IsAdmin,
			CreatedAt: u.CreatedAt,
		}
	}
	return result
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type BroadcastRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type BroadcastResponse struct {
	Created int `json:"created"`
}
