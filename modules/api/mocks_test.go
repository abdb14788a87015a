package api

import (
	"context"
	"errors"

	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/task-management-system/domain/user"
	"github.com/example/task-management-system/modules/auth"
	"github.com/example/task-management-system/modules/notification"
	"github.com/example/task-management-system/modules/task"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// mockAuthPort implements auth.AuthPort for testing
type mockAuthPort struct {
	registerFunc      func(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error)
	loginFunc         func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	validateTokenFunc func(ctx context.Context, token string) (*domain.Claims, error)
	listUsersFunc     func(ctx context.Context) ([]domain.User, error)
}

func (m *mockAuthPort) Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) ListUsers(ctx context.Context) ([]domain.User, error) {
	if m.listUsersFunc != nil {
		return m.listUsersFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

// acceptToken validates "valid-token" as user u1 and rejects anything else.
func acceptToken(_ context.Context, token string) (*domain.Claims, error) {
	if token != "valid-token" {
		return nil, auth.ErrInvalidToken
	}
	return &domain.Claims{UserID: "u1", Role: domain.RoleEmployee, Username: "alice"}, nil
}

// mockTaskPort implements task.TaskPort for testing
type mockTaskPort struct {
	listTasksFunc  func(ctx context.Context) ([]task.TaskView, error)
	createTaskFunc func(ctx context.Context, fields task.TaskFields, creatorID string) (*task.TaskRecord, error)
	getTaskFunc    func(ctx context.Context, taskID string) (*task.TaskView, error)
	updateTaskFunc func(ctx context.Context, taskID string, fields task.TaskFields, updatedByID string) (*task.TaskRecord, error)
	deleteTaskFunc func(ctx context.Context, taskID, deletedByID string) error
	addCommentFunc func(ctx context.Context, taskID, text, authorID string) ([]task.CommentView, error)
}

func (m *mockTaskPort) ListTasks(ctx context.Context) ([]task.TaskView, error) {
	if m.listTasksFunc != nil {
		return m.listTasksFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) CreateTask(ctx context.Context, fields task.TaskFields, creatorID string) (*task.TaskRecord, error) {
	if m.createTaskFunc != nil {
		return m.createTaskFunc(ctx, fields, creatorID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) GetTask(ctx context.Context, taskID string) (*task.TaskView, error) {
	if m.getTaskFunc != nil {
		return m.getTaskFunc(ctx, taskID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) UpdateTask(ctx context.Context, taskID string, fields task.TaskFields, updatedByID string) (*task.TaskRecord, error) {
	if m.updateTaskFunc != nil {
		return m.updateTaskFunc(ctx, taskID, fields, updatedByID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) DeleteTask(ctx context.Context, taskID, deletedByID string) error {
	if m.deleteTaskFunc != nil {
		return m.deleteTaskFunc(ctx, taskID, deletedByID)
	}
	return errors.New("not implemented")
}

func (m *mockTaskPort) AddComment(ctx context.Context, taskID, text, authorID string) ([]task.CommentView, error) {
	if m.addCommentFunc != nil {
		return m.addCommentFunc(ctx, taskID, text, authorID)
	}
	return nil, errors.New("not implemented")
}

// mockActivityPort implements notification.ActivityPort for testing
type mockActivityPort struct {
	listActivityFunc func(ctx context.Context, limit int) ([]notification.Activity, error)
}

func (m *mockActivityPort) ListActivity(ctx context.Context, limit int) ([]notification.Activity, error) {
	if m.listActivityFunc != nil {
		return m.listActivityFunc(ctx, limit)
	}
	return nil, errors.New("not implemented")
}
