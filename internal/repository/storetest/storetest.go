// Package storetest holds the behaviour every store backend must share.
// Backends call Run from their own tests with a factory for an empty store.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	"todoReminder/internal/models/user"
	repo "todoReminder/internal/repository"
)

type Store interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id int64) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, t *task.Task) error
	GetTask(ctx context.Context, id int64) (*task.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error)
	UpdateTask(ctx context.Context, t *task.Task) error
	DeleteTask(ctx context.Context, id int64) error
	DeleteTasksByOwner(ctx context.Context, ownerID int64) (int64, error)

	ListNotificationsByUser(ctx context.Context, userID int64) ([]*notification.Notification, error)
	BroadcastNotification(ctx context.Context, title, message string, now time.Time) ([]*notification.Notification, error)
	DeleteNotificationsByUser(ctx context.Context, userID int64) (int64, error)

	FindDueUnnotified(ctx context.Context, now time.Time, afterID int64, limit int) ([]*task.Task, error)
	NotifyTask(ctx context.Context, taskID int64, now time.Time) (*notification.Notification, error)

	HealthCheck(ctx context.Context) error
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Run executes the shared cases, each against a fresh store from newStore.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"CreateAndGetTask", testCreateAndGetTask},
		{"TitleUniquePerOwner", testTitleUniquePerOwner},
		{"ConcurrentCreateSameTitle", testConcurrentCreateSameTitle},
		{"CreateTaskMissingOwner", testCreateTaskMissingOwner},
		{"UpdateKeepsNotified", testUpdateKeepsNotified},
		{"UpdateAllowsDuplicateTitle", testUpdateAllowsDuplicateTitle},
		{"NotifyIdempotent", testNotifyIdempotent},
		{"NotifyStale", testNotifyStale},
		{"FindDuePaging", testFindDuePaging},
		{"Broadcast", testBroadcast},
		{"Users", testUsers},
		{"DanglingTaskReference", testDanglingTaskReference},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func createUser(t *testing.T, s Store, name string, admin bool) *user.User {
	t.Helper()
	u := &user.User{Username: name, PasswordHash: "hash", IsAdmin: admin, CreatedAt: now}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func createTask(t *testing.T, s Store, ownerID int64, title string, opts ...task.TaskOption) *task.Task {
	t.Helper()
	created := task.New(ownerID, title, now, opts...)
	require.NoError(t, s.CreateTask(context.Background(), created))
	require.NotZero(t, created.ID)
	return created
}

func testCreateAndGetTask(t *testing.T, s Store) {
	ctx := context.Background()
	owner := createUser(t, s, "alice", false)
	desc := "2 liters"
	due := now.Add(24 * time.Hour)
	created := createTask(t, s, owner.ID, "Buy milk", task.WithDescription(&desc), task.WithDueAt(&due))

	got, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, owner.ID, got.OwnerID)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	require.NotNil(t, got.DueAt)
	assert.True(t, due.Equal(*got.DueAt))
	assert.Nil(t, got.ReminderAt)
	assert.False(t, got.Notified)
	assert.False(t, got.Completed)

	_, err = s.GetTask(ctx, created.ID+100)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	second := createTask(t, s, owner.ID, "Walk dog")
	list, err := s.ListTasksByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	other, err := s.ListTasksByOwner(ctx, owner.ID+1)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testTitleUniquePerOwner(t *testing.T, s Store) {
	ctx := context.Background()
	alice := createUser(t, s, "alice", false)
	bob := createUser(t, s, "bob", false)
	createTask(t, s, alice.ID, "Buy milk")

	err := s.CreateTask(ctx, task.New(alice.ID, "Buy milk", now))
	assert.ErrorIs(t, err, repo.ErrConflict)

	createTask(t, s, bob.ID, "Buy milk")
	createTask(t, s, alice.ID, "buy milk")
}

func testConcurrentCreateSameTitle(t *testing.T, s Store) {
	alice := createUser(t, s, "alice", false)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.CreateTask(context.Background(), task.New(alice.ID, "Same", now)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func testCreateTaskMissingOwner(t *testing.T, s Store) {
	err := s.CreateTask(context.Background(), task.New(999, "Orphan", now))
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testUpdateKeepsNotified(t *testing.T, s Store) {
	ctx := context.Background()
	owner := createUser(t, s, "alice", false)
	reminder := now.Add(-time.Minute)
	created := createTask(t, s, owner.ID, "Call mom", task.WithReminderAt(&reminder))

	_, err := s.NotifyTask(ctx, created.ID, now)
	require.NoError(t, err)

	created.Notified = false
	created.Title = "Call mom today"
	created.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.UpdateTask(ctx, created))
	assert.True(t, created.Notified)

	got, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
	assert.Equal(t, "Call mom today", got.Title)
	assert.True(t, now.Add(time.Minute).Equal(got.UpdatedAt))

	missing := task.New(owner.ID, "ghost", now)
	missing.ID = created.ID + 100
	assert.ErrorIs(t, s.UpdateTask(ctx, missing), repo.ErrNotFound)
}

func testUpdateAllowsDuplicateTitle(t *testing.T, s Store) {
	ctx := context.Background()
	owner := createUser(t, s, "alice", false)
	createTask(t, s, owner.ID, "A")
	b := createTask(t, s, owner.ID, "B")

	b.Title = "A"
	require.NoError(t, s.UpdateTask(ctx, b))

	list, err := s.ListTasksByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Title)
	assert.Equal(t, "A", list[1].Title)
}

func testNotifyIdempotent(t *testing.T, s Store) {
	ctx := context.Background()
	owner := createUser(t, s, "alice", false)
	reminder := now.Add(-time.Minute)
	exact := now
	future := now.Add(time.Hour)
	due := createTask(t, s, owner.ID, "Due", task.WithReminderAt(&reminder))
	atNow := createTask(t, s, owner.ID, "At now", task.WithReminderAt(&exact))
	createTask(t, s, owner.ID, "Later", task.WithReminderAt(&future))
	createTask(t, s, owner.ID, "Never")

	found, err := s.FindDueUnnotified(ctx, now, 0, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, due.ID, found[0].ID)
	assert.Equal(t, atNow.ID, found[1].ID)

	n, err := s.NotifyTask(ctx, due.ID, now)
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.Equal(t, fmt.Sprintf("Reminder for task #%d", due.ID), n.Title)
	assert.Equal(t, "Reminder: Due", n.Message)
	assert.Equal(t, owner.ID, n.UserID)
	require.NotNil(t, n.TaskID)
	assert.Equal(t, due.ID, *n.TaskID)

	_, err = s.NotifyTask(ctx, due.ID, now)
	assert.ErrorIs(t, err, repo.ErrStale)

	got, err := s.GetTask(ctx, due.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
	assert.True(t, now.Equal(got.UpdatedAt))

	list, err := s.ListNotificationsByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testNotifyStale(t *testing.T, s Store) {
	ctx := context.Background()
	owner := createUser(t, s, "alice", false)
	reminder := now.Add(-time.Minute)
	moved := createTask(t, s, owner.ID, "Moved", task.WithReminderAt(&reminder))
	cleared := createTask(t, s, owner.ID, "Cleared", task.WithReminderAt(&reminder))
	deleted := createTask(t, s, owner.ID, "Deleted", task.WithReminderAt(&reminder))

	later := now.Add(time.Hour)
	moved.ReminderAt = &later
	require.NoError(t, s.UpdateTask(ctx, moved))

	cleared.ReminderAt = nil
	require.NoError(t, s.UpdateTask(ctx, cleared))

	require.NoError(t, s.DeleteTask(ctx, deleted.ID))

	for _, id := range []int64{moved.ID, cleared.ID, deleted.ID} {
		_, err := s.NotifyTask(ctx, id, now)
		assert.ErrorIs(t, err, repo.ErrStale)
	}

	list, err := s.ListNotificationsByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testFindDuePaging(t *testing.T, s Store) {
	ctx := context.Background()
	owner := createUser(t, s, "alice", false)
	reminder := now.Add(-time.Minute)
	for i := 0; i < 5; i++ {
		createTask(t, s, owner.ID, fmt.Sprintf("Task %d", i), task.WithReminderAt(&reminder))
	}

	first, err := s.FindDueUnnotified(ctx, now, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Less(t, first[0].ID, first[1].ID)

	rest, err := s.FindDueUnnotified(ctx, now, first[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Greater(t, rest[0].ID, first[1].ID)
}

func testBroadcast(t *testing.T, s Store) {
	ctx := context.Background()
	var regular []*user.User
	for _, name := range []string{"u1", "u2", "u3"} {
		regular = append(regular, createUser(t, s, name, false))
	}
	admin := createUser(t, s, "root", true)

	created, err := s.BroadcastNotification(ctx, "Maintenance", "Downtime at 5pm", now)
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, n := range created {
		assert.Nil(t, n.TaskID)
		assert.NotEqual(t, admin.ID, n.UserID)
		assert.Equal(t, "Maintenance", n.Title)
		assert.Equal(t, "Downtime at 5pm", n.Message)
	}

	for _, u := range regular {
		list, err := s.ListNotificationsByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	adminList, err := s.ListNotificationsByUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Empty(t, adminList)

	_, err = s.BroadcastNotification(ctx, "Again", "Twice", now)
	require.NoError(t, err)
	list, err := s.ListNotificationsByUser(ctx, regular[0].ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	alice := createUser(t, s, "alice", false)
	bob := createUser(t, s, "bob", true)

	err := s.CreateUser(ctx, &user.User{Username: "alice", PasswordHash: "x", CreatedAt: now})
	assert.ErrorIs(t, err, repo.ErrConflict)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = s.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = s.GetUserByUsername(ctx, "carol")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, alice.ID, users[0].ID)

	createTask(t, s, alice.ID, "One")
	createTask(t, s, alice.ID, "Two")
	deleted, err := s.DeleteTasksByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = s.BroadcastNotification(ctx, "Hi", "There", now)
	require.NoError(t, err)
	deleted, err = s.DeleteNotificationsByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))
	_, err = s.GetUser(ctx, alice.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, alice.ID), repo.ErrNotFound)

	require.NoError(t, s.HealthCheck(ctx))
}

func testDanglingTaskReference(t *testing.T, s Store) {
	ctx := context.Background()
	owner := createUser(t, s, "alice", false)
	reminder := now.Add(-time.Minute)
	created := createTask(t, s, owner.ID, "Gone soon", task.WithReminderAt(&reminder))

	_, err := s.NotifyTask(ctx, created.ID, now)
	require.NoError(t, err)
	require.NoError(t, s.DeleteTask(ctx, created.ID))
	assert.ErrorIs(t, s.DeleteTask(ctx, created.ID), repo.ErrNotFound)

	list, err := s.ListNotificationsByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].TaskID)
	assert.Equal(t, created.ID, *list[0].TaskID)
}
