package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"todoReminder/internal/auth"
	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	"todoReminder/internal/models/user"
	rep "todoReminder/internal/repository"
	"todoReminder/internal/repository/inmemory"
	"todoReminder/internal/service"
)

// MockTaskRepository - task repository mock
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) UpdateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteTasksByOwner(ctx context.Context, ownerID int64) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetUser(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockUserRepository) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ service.UserRepository = (*MockUserRepository)(nil)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) ListNotificationsByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) BroadcastNotification(ctx context.Context, title, message string, now time.Time) ([]*notification.Notification, error) {
	args := m.Called(ctx, title, message, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) DeleteNotificationsByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

var _ service.NotificationRepository = (*MockNotificationRepository)(nil)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetNotifications(ctx context.Context, userID int64) ([]*notification.Notification, bool) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]*notification.Notification), args.Bool(1)
}

func (m *MockCache) Generation(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) SetNotifications(ctx context.Context, userID, gen int64, list []*notification.Notification) {
	m.Called(ctx, userID, gen, list)
}

func (m *MockCache) Invalidate(ctx context.Context, userIDs ...int64) {
	m.Called(ctx, userIDs)
}

var _ service.NotificationCache = (*MockCache)(nil)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() service.Option {
	return service.WithClock(func() time.Time { return testNow })
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var busErr *service.BusinessError
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, code, busErr.Code)
}

func ptr[T any](v T) *T {
	return &v
}

// seedUser stores a user directly, skipping password hashing.
func seedUser(t *testing.T, store *inmemory.Storage, name string, admin bool) *user.User {
	t.Helper()
	u := &user.User{Username: name, PasswordHash: "x", IsAdmin: admin, CreatedAt: testNow}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo)
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "service health check")
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	const uid = int64(7)

	tests := []struct {
		name      string
		input     service.CreateTaskInput
		setupMock func(*MockTaskRepository)
		errorCode string
		plainErr  bool
	}{
		{
			name:  "success",
			input: service.CreateTaskInput{Title: "Buy milk", Description: ptr("2 liters")},
			setupMock: func(m *MockTaskRepository) {
				m.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.OwnerID == uid && t.Title == "Buy milk" && !t.Notified &&
						t.CreatedAt.Equal(testNow) && t.UpdatedAt.Equal(testNow)
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*task.Task).ID = 1
				}).Return(nil)
			},
		},
		{
			name:  "duplicate title",
			input: service.CreateTaskInput{Title: "Buy milk"},
			setupMock: func(m *MockTaskRepository) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(rep.ErrConflict)
			},
			errorCode: service.CodeConflict,
		},
		{
			name:      "empty title",
			input:     service.CreateTaskInput{Title: "   "},
			setupMock: func(m *MockTaskRepository) {},
			errorCode: service.CodeValidation,
		},
		{
			name:      "title too long",
			input:     service.CreateTaskInput{Title: string(make([]byte, 201))},
			setupMock: func(m *MockTaskRepository) {},
			errorCode: service.CodeValidation,
		},
		{
			name:  "store failure",
			input: service.CreateTaskInput{Title: "Buy milk"},
			setupMock: func(m *MockTaskRepository) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			plainErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo, fixedClock())
			created, err := svc.CreateTask(ctx, uid, tt.input)

			switch {
			case tt.errorCode != "":
				requireCode(t, err, tt.errorCode)
			case tt.plainErr:
				require.Error(t, err)
				var busErr *service.BusinessError
				assert.False(t, errors.As(err, &busErr))
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(1), created.ID)
				assert.Equal(t, "2 liters", *created.Description)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_NotFoundForForeignTask(t *testing.T) {
	ctx := context.Background()
	foreign := &task.Task{ID: 5, OwnerID: 2, Title: "Secret"}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetTask", mock.Anything, int64(5)).Return(foreign, nil)
	mockRepo.On("GetTask", mock.Anything, int64(6)).Return(nil, rep.ErrNotFound)

	svc := service.NewTaskService(mockRepo, fixedClock())

	for _, id := range []int64{5, 6} {
		_, err := svc.GetTask(ctx, 1, id)
		requireCode(t, err, service.CodeNotFound)

		_, err = svc.PatchTask(ctx, 1, id, task.Patch{Completed: task.Some(true)})
		requireCode(t, err, service.CodeNotFound)

		_, err = svc.ReplaceTask(ctx, 1, id, task.Replacement{Title: "Mine now"})
		requireCode(t, err, service.CodeNotFound)

		requireCode(t, svc.DeleteTask(ctx, 1, id), service.CodeNotFound)
	}

	mockRepo.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "DeleteTask", mock.Anything, mock.Anything)
}

func TestTaskService_PatchTask(t *testing.T) {
	ctx := context.Background()
	created := testNow.Add(-time.Hour)
	reminder := testNow.Add(time.Hour)

	existing := func() *task.Task {
		return &task.Task{
			ID:          3,
			OwnerID:     1,
			Title:       "Walk dog",
			Description: ptr("around the park"),
			CreatedAt:   created,
			UpdatedAt:   created,
			ReminderAt:  &reminder,
			Notified:    true,
		}
	}

	tests := []struct {
		name      string
		patch     task.Patch
		want      func(*task.Task)
		errorCode string
	}{
		{
			name:  "empty patch only bumps updated_at",
			patch: task.Patch{},
			want:  func(t *task.Task) { t.UpdatedAt = testNow },
		},
		{
			name:  "null description clears it",
			patch: task.Patch{Description: task.Null[string]()},
			want: func(t *task.Task) {
				t.Description = nil
				t.UpdatedAt = testNow
			},
		},
		{
			name:  "title and completed",
			patch: task.Patch{Title: task.Some("Walk cat"), Completed: task.Some(true)},
			want: func(t *task.Task) {
				t.Title = "Walk cat"
				t.Completed = true
				t.UpdatedAt = testNow
			},
		},
		{
			name:  "null reminder clears it",
			patch: task.Patch{ReminderAt: task.Null[time.Time]()},
			want: func(t *task.Task) {
				t.ReminderAt = nil
				t.UpdatedAt = testNow
			},
		},
		{
			name:      "null title rejected",
			patch:     task.Patch{Title: task.Null[string]()},
			errorCode: service.CodeValidation,
		},
		{
			name:      "null completed rejected",
			patch:     task.Patch{Completed: task.Null[bool]()},
			errorCode: service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			svc := service.NewTaskService(mockRepo, fixedClock())

			if tt.errorCode != "" {
				_, err := svc.PatchTask(ctx, 1, 3, tt.patch)
				requireCode(t, err, tt.errorCode)
				mockRepo.AssertNotCalled(t, "GetTask", mock.Anything, mock.Anything)
				return
			}

			mockRepo.On("GetTask", mock.Anything, int64(3)).Return(existing(), nil)
			mockRepo.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

			got, err := svc.PatchTask(ctx, 1, 3, tt.patch)
			require.NoError(t, err)

			want := existing()
			tt.want(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("patched task mismatch (-want +got):\n%s", diff)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_ReplaceSkipsTitleUniqueness(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	owner := seedUser(t, store, "alice", false)
	svc := service.NewTaskService(store, fixedClock())

	a, err := svc.CreateTask(ctx, owner.ID, service.CreateTaskInput{Title: "A"})
	require.NoError(t, err)
	b, err := svc.CreateTask(ctx, owner.ID, service.CreateTaskInput{Title: "B", Description: ptr("b")})
	require.NoError(t, err)

	_, err = svc.CreateTask(ctx, owner.ID, service.CreateTaskInput{Title: "A"})
	requireCode(t, err, service.CodeConflict)

	replaced, err := svc.ReplaceTask(ctx, owner.ID, b.ID, task.Replacement{Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", replaced.Title)
	assert.Nil(t, replaced.Description, "absent optionals become unset")

	list, err := svc.ListTasks(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, "A", list[1].Title)
}

func TestTaskService_BuyMilkScenario(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	alice := seedUser(t, store, "alice", false)
	bob := seedUser(t, store, "bob", false)
	svc := service.NewTaskService(store, fixedClock())

	milk, err := svc.CreateTask(ctx, alice.ID, service.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	_, err = svc.CreateTask(ctx, alice.ID, service.CreateTaskInput{Title: "Buy milk"})
	requireCode(t, err, service.CodeConflict)

	_, err = svc.CreateTask(ctx, bob.ID, service.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	_, err = svc.GetTask(ctx, bob.ID, milk.ID)
	requireCode(t, err, service.CodeNotFound)

	require.NoError(t, svc.DeleteTask(ctx, alice.ID, milk.ID))
	_, err = svc.GetTask(ctx, alice.ID, milk.ID)
	requireCode(t, err, service.CodeNotFound)
}

func TestTaskService_PatchNeverResetsNotified(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	owner := seedUser(t, store, "alice", false)
	svc := service.NewTaskService(store, fixedClock())

	reminder := testNow.Add(-time.Minute)
	created, err := svc.CreateTask(ctx, owner.ID, service.CreateTaskInput{Title: "Call", ReminderAt: &reminder})
	require.NoError(t, err)

	_, err = store.NotifyTask(ctx, created.ID, testNow)
	require.NoError(t, err)

	later := testNow.Add(time.Hour)
	patched, err := svc.PatchTask(ctx, owner.ID, created.ID, task.Patch{ReminderAt: task.Some(later)})
	require.NoError(t, err)
	assert.True(t, patched.Notified)

	got, err := svc.GetTask(ctx, owner.ID, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
	assert.True(t, later.Equal(*got.ReminderAt))
}

var _ service.TokenManager = (*auth.TokenManager)(nil)
