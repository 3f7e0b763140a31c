package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"todoReminder/internal/handlers"
	"todoReminder/internal/models/notification"
	"todoReminder/internal/models/task"
	"todoReminder/internal/models/user"
	"todoReminder/internal/service"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) CreateTask(ctx context.Context, uid int64, in service.CreateTaskInput) (*task.Task, error) {
	args := m.Called(ctx, uid, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) ListTasks(ctx context.Context, uid int64) ([]*task.Task, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, uid, id int64) (*task.Task, error) {
	args := m.Called(ctx, uid, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) PatchTask(ctx context.Context, uid, id int64, patch task.Patch) (*task.Task, error) {
	args := m.Called(ctx, uid, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) ReplaceTask(ctx context.Context, uid, id int64, r task.Replacement) (*task.Task, error) {
	args := m.Called(ctx, uid, id, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, uid, id int64) error {
	args := m.Called(ctx, uid, id)
	return args.Error(0)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, username, password string) (*user.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) Resolve(ctx context.Context, token string) (service.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(service.Identity), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, caller service.Identity) ([]*user.User, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, caller service.Identity, id int64) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) ListForUser(ctx context.Context, uid int64) ([]*notification.Notification, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

func (m *MockNotificationService) Broadcast(ctx context.Context, caller service.Identity, title, message string) (int, error) {
	args := m.Called(ctx, caller, title, message)
	return args.Int(0), args.Error(1)
}

var (
	_ handlers.TaskService         = (*MockTaskService)(nil)
	_ handlers.UserService         = (*MockUserService)(nil)
	_ handlers.NotificationService = (*MockNotificationService)(nil)
)

var (
	alice = service.Identity{UserID: 1, Username: "alice"}
	admin = service.Identity{UserID: 9, Username: "root", IsAdmin: true}
)

type testServer struct {
	tasks         *MockTaskService
	users         *MockUserService
	notifications *MockNotificationService
	handler       http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		tasks:         new(MockTaskService),
		users:         new(MockUserService),
		notifications: new(MockNotificationService),
	}
	s.users.On("Resolve", mock.Anything, "alice-token").Return(alice, nil).Maybe()
	s.users.On("Resolve", mock.Anything, "admin-token").Return(admin, nil).Maybe()
	s.handler = handlers.NewRouter(handlers.RouterConfig{}, s.tasks, s.users, s.notifications)

	t.Cleanup(func() {
		s.tasks.AssertExpectations(t)
		s.users.AssertExpectations(t)
		s.notifications.AssertExpectations(t)
	})
	return s
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func sampleTask() *task.Task {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	return &task.Task{ID: 7, OwnerID: alice.UserID, Title: "Buy milk", CreatedAt: now, UpdatedAt: now}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		healthErr      error
		expectedStatus int
	}{
		{"healthy", nil, http.StatusOK},
		{"store unavailable", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.tasks.On("HealthCheck", mock.Anything).Return(tt.healthErr)

			w := s.do(http.MethodGet, "/health", "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), "todo-reminder")
		})
	}
}

func TestCreateTodo(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		token          string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:        "created",
			body:        `{"title":"Buy milk","reminder_at":"2026-01-01T09:00:00Z"}`,
			contentType: "application/json",
			token:       "alice-token",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, alice.UserID, mock.MatchedBy(func(in service.CreateTaskInput) bool {
					return in.Title == "Buy milk" && in.ReminderAt != nil &&
						in.ReminderAt.Equal(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
				})).Return(sampleTask(), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "duplicate title",
			body:        `{"title":"Buy milk"}`,
			contentType: "application/json",
			token:       "alice-token",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, alice.UserID, mock.Anything).
					Return(nil, service.NewConflict("title", "You already have a todo with this title."))
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   service.CodeConflict,
		},
		{
			name:        "blank title",
			body:        `{"title":"   "}`,
			contentType: "application/json",
			token:       "alice-token",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, alice.UserID, mock.Anything).
					Return(nil, service.NewValidationError("title", "Title must not be empty"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "wrong content type",
			body:           `{}`,
			contentType:    "text/plain",
			token:          "alice-token",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "invalid json",
			body:           `{invalid json}`,
			contentType:    "application/json",
			token:          "alice-token",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
		{
			name:           "no token",
			body:           `{"title":"Buy milk"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   service.CodeAuth,
		},
		{
			name:        "store failure is hidden",
			body:        `{"title":"Buy milk"}`,
			contentType: "application/json",
			token:       "alice-token",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, alice.UserID, mock.Anything).
					Return(nil, errors.New("pq: relation does not exist"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.setupMock(s.tasks)

			req := httptest.NewRequest(http.MethodPost, "/todos/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			s.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decodeBody(t, w)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error"])
			}
			if tt.expectedStatus == http.StatusCreated {
				assert.EqualValues(t, 7, body["id"])
				assert.Equal(t, "Buy milk", body["title"])
				assert.Equal(t, false, body["notified"])
			}
			if tt.expectedStatus == http.StatusInternalServerError {
				assert.NotContains(t, body["message"], "pq:")
			}
		})
	}
}

func TestGetTodo(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "own task",
			path: "/todos/7",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, alice.UserID, int64(7)).Return(sampleTask(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "someone else's task looks missing",
			path: "/todos/8",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, alice.UserID, int64(8)).Return(nil, service.NewNotFound("Todo", 8))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "non-numeric id",
			path:           "/todos/abc",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero id",
			path:           "/todos/0",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.setupMock(s.tasks)

			w := s.do(http.MethodGet, tt.path, "", "alice-token")

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestListTodos(t *testing.T) {
	s := newTestServer(t)
	s.tasks.On("ListTasks", mock.Anything, alice.UserID).Return([]*task.Task{sampleTask()}, nil)

	w := s.do(http.MethodGet, "/todos/", "", "alice-token")

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "Buy milk", body[0]["title"])
}

func TestPatchTodo_DistinguishesNullFromAbsent(t *testing.T) {
	s := newTestServer(t)
	s.tasks.On("PatchTask", mock.Anything, alice.UserID, int64(7), mock.MatchedBy(func(p task.Patch) bool {
		return p.Completed.Set && p.Completed.Value &&
			p.Description.Set && !p.Description.Valid &&
			!p.Title.Set && !p.ReminderAt.Set
	})).Return(sampleTask(), nil)

	w := s.do(http.MethodPatch, "/todos/7", `{"completed":true,"description":null}`, "alice-token")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReplaceTodo(t *testing.T) {
	s := newTestServer(t)
	s.tasks.On("ReplaceTask", mock.Anything, alice.UserID, int64(7), task.Replacement{Title: "Buy bread"}).
		Return(sampleTask(), nil)

	w := s.do(http.MethodPut, "/todos/7", `{"title":"Buy bread"}`, "alice-token")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteTodo(t *testing.T) {
	s := newTestServer(t)
	s.tasks.On("DeleteTask", mock.Anything, alice.UserID, int64(7)).Return(nil)

	w := s.do(http.MethodDelete, "/todos/7", "", "alice-token")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestListNotifications(t *testing.T) {
	s := newTestServer(t)
	taskID := int64(7)
	s.notifications.On("ListForUser", mock.Anything, alice.UserID).Return([]*notification.Notification{
		{ID: 1, Title: "Reminder for task #7", Message: "Reminder: Buy milk", TaskID: &taskID, UserID: alice.UserID},
	}, nil)

	w := s.do(http.MethodGet, "/notifications", "", "alice-token")

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "Reminder: Buy milk", body[0]["message"])
	assert.EqualValues(t, 7, body[0]["task_id"])
}

func TestAdminRoutes(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		token          string
		setupMock      func(*testServer)
		expectedStatus int
	}{
		{
			name:           "non-admin cannot list users",
			method:         http.MethodGet,
			path:           "/admin/users/",
			token:          "alice-token",
			setupMock:      func(*testServer) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:   "admin lists users",
			method: http.MethodGet,
			path:   "/admin/users/",
			token:  "admin-token",
			setupMock: func(s *testServer) {
				s.users.On("ListUsers", mock.Anything, admin).Return([]*user.User{{ID: 1, Username: "alice"}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "admin deletes a user",
			method: http.MethodDelete,
			path:   "/admin/users/1",
			token:  "admin-token",
			setupMock: func(s *testServer) {
				s.users.On("DeleteUser", mock.Anything, admin, int64(1)).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:   "admin cannot delete themselves",
			method: http.MethodDelete,
			path:   "/admin/users/9",
			token:  "admin-token",
			setupMock: func(s *testServer) {
				s.users.On("DeleteUser", mock.Anything, admin, int64(9)).
					Return(service.NewValidationError("id", "Admins cannot delete their own account."))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "non-admin cannot broadcast",
			method:         http.MethodPost,
			path:           "/admin/bulk-notify",
			body:           `{"title":"Maintenance","message":"Tonight"}`,
			token:          "alice-token",
			setupMock:      func(*testServer) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:   "admin broadcasts",
			method: http.MethodPost,
			path:   "/admin/bulk-notify",
			body:   `{"title":"Maintenance","message":"Tonight"}`,
			token:  "admin-token",
			setupMock: func(s *testServer) {
				s.notifications.On("Broadcast", mock.Anything, admin, "Maintenance", "Tonight").Return(3, nil)
			},
			expectedStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.setupMock(s)

			w := s.do(tt.method, tt.path, tt.body, tt.token)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				assert.EqualValues(t, 3, decodeBody(t, w)["created"])
			}
		})
	}
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)
	s.users.On("Register", mock.Anything, "Alice", "Secret1!x").
		Return(&user.User{ID: 1, Username: "alice"}, nil)
	s.users.On("Register", mock.Anything, "alice", "Secret1!x").
		Return(nil, service.NewConflict("username", "Username already registered"))

	w := s.do(http.MethodPost, "/register", `{"username":"Alice","password":"Secret1!x"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, "alice", body["username"])

	w = s.do(http.MethodPost, "/register", `{"username":"alice","password":"Secret1!x"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestToken(t *testing.T) {
	t.Run("form body", func(t *testing.T) {
		s := newTestServer(t)
		s.users.On("Login", mock.Anything, "alice", "Secret1!x").Return("signed.jwt.token", nil)

		form := url.Values{"username": {"alice"}, "password": {"Secret1!x"}}
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		s.handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "signed.jwt.token", body["access_token"])
		assert.Equal(t, "bearer", body["token_type"])
	})

	t.Run("json body with bad credentials", func(t *testing.T) {
		s := newTestServer(t)
		s.users.On("Login", mock.Anything, "alice", "wrong").
			Return("", service.NewAuthError("Incorrect username or password"))

		w := s.do(http.MethodPost, "/token", `{"username":"alice","password":"wrong"}`, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Incorrect username or password", decodeBody(t, w)["message"])
	})
}

func TestExpiredTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	s.users.On("Resolve", mock.Anything, "stale-token").
		Return(service.Identity{}, service.NewAuthError("Could not validate credentials"))

	w := s.do(http.MethodGet, "/todos/", "", "stale-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}
