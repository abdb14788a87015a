package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-monolith/mono"
	monoerrors "github.com/go-monolith/mono/pkg/errors"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskPort defines the task operations other modules use.
type TaskPort interface {
	ListTasks(ctx context.Context) ([]TaskView, error)
	CreateTask(ctx context.Context, fields TaskFields, creatorID string) (*TaskRecord, error)
	GetTask(ctx context.Context, taskID string) (*TaskView, error)
	UpdateTask(ctx context.Context, taskID string, fields TaskFields, updatedByID string) (*TaskRecord, error)
	DeleteTask(ctx context.Context, taskID, deletedByID string) error
	AddComment(ctx context.Context, taskID, text, authorID string) ([]CommentView, error)
}

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new adapter for task services.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

// ListTasks lists every task via the list-tasks service.
func (a *taskAdapter) ListTasks(ctx context.Context) ([]TaskView, error) {
	req := ListTasksRequest{}
	var resp ListTasksResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-tasks",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("list-tasks", err)
	}
	if resp.Tasks == nil {
		resp.Tasks = []TaskView{}
	}
	return resp.Tasks, nil
}

// CreateTask creates a new task via the create-task service.
func (a *taskAdapter) CreateTask(ctx context.Context, fields TaskFields, creatorID string) (*TaskRecord, error) {
	req := CreateTaskRequest{Fields: fields, CreatorID: creatorID}
	var resp TaskRecord
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"create-task",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("create-task", err)
	}
	return &resp, nil
}

// GetTask retrieves a task by ID via the get-task service.
func (a *taskAdapter) GetTask(ctx context.Context, taskID string) (*TaskView, error) {
	req := GetTaskRequest{TaskID: taskID}
	var resp TaskView
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-task",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("get-task", err)
	}
	return &resp, nil
}

// UpdateTask overwrites a task via the update-task service.
func (a *taskAdapter) UpdateTask(ctx context.Context, taskID string, fields TaskFields, updatedByID string) (*TaskRecord, error) {
	req := UpdateTaskRequest{TaskID: taskID, Fields: fields, UpdatedByID: updatedByID}
	var resp TaskRecord
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"update-task",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("update-task", err)
	}
	return &resp, nil
}

// DeleteTask deletes a task via the delete-task service.
func (a *taskAdapter) DeleteTask(ctx context.Context, taskID, deletedByID string) error {
	req := DeleteTaskRequest{TaskID: taskID, DeletedByID: deletedByID}
	var resp DeleteTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"delete-task",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return restoreError("delete-task", err)
	}
	if !resp.Deleted {
		return fmt.Errorf("task not deleted: %s", taskID)
	}
	return nil
}

// AddComment appends a comment via the add-comment service.
func (a *taskAdapter) AddComment(ctx context.Context, taskID, text, authorID string) ([]CommentView, error) {
	req := AddCommentRequest{TaskID: taskID, Text: text, AuthorID: authorID}
	var resp AddCommentResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"add-comment",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("add-comment", err)
	}
	if resp.Comments == nil {
		resp.Comments = []CommentView{}
	}
	return resp.Comments, nil
}

// remoteError carries a handler failure across the request-reply boundary,
// where only the error text survives. sentinel is nil when the text does not
// start with one of this package's sentinels.
type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }

// restoreError maps a service error back onto this package's sentinels so
// callers can use errors.Is. Only a handler error whose message begins with
// a sentinel's text is restored; transport failures are wrapped as-is.
func restoreError(service string, err error) error {
	re, ok := monoerrors.GetRemoteError(err)
	if !ok {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	for _, sentinel := range []error{ErrTaskNotFound, ErrValidation} {
		if strings.HasPrefix(re.Message, sentinel.Error()) {
			return &remoteError{sentinel: sentinel, msg: re.Message}
		}
	}
	return &remoteError{msg: re.Message}
}
