package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/task-management-system/events"
	"github.com/example/task-management-system/modules/cache"
	"github.com/example/task-management-system/modules/storage"
)

// TaskModule provides the task repository services (core domain).
type TaskModule struct {
	storage  *storage.PluginModule
	cache    cache.CacheService
	service  *TaskService
	eventBus mono.EventBus
	logger   types.Logger
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.UsePluginModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule.
func NewModule(logger types.Logger) *TaskModule {
	return &TaskModule{
		logger: logger,
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetPlugin receives the storage and cache plugins before Start.
func (m *TaskModule) SetPlugin(alias string, plugin mono.PluginModule) {
	switch alias {
	case "storage":
		if sp, ok := plugin.(*storage.PluginModule); ok {
			m.storage = sp
			return
		}
	case "cache":
		if cp, ok := plugin.(*cache.PluginModule); ok {
			m.cache = cp.Port()
			return
		}
	default:
		return
	}
	m.logger.Error("Invalid plugin type", "alias", alias)
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.CommentAddedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "add-comment", json.Unmarshal, json.Marshal, m.addComment,
	); err != nil {
		return fmt.Errorf("failed to register add-comment service: %w", err)
	}

	m.logger.Info("Registered task services",
		"services", []string{"list-tasks", "create-task", "get-task", "update-task", "delete-task", "add-comment"})
	return nil
}

func (m *TaskModule) Start(_ context.Context) error {
	if m.storage == nil || m.storage.DB() == nil {
		return fmt.Errorf("storage plugin not set - ensure 'storage' plugin is registered")
	}
	if m.cache == nil {
		m.logger.Warn("Cache plugin not set, task views will not be cached")
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, events will not be published")
	}

	m.service = NewTaskService(NewTaskRepository(m.storage.DB()), m.cache, m.logger)
	m.logger.Info("Task module started")
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	m.logger.Info("Task module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *TaskModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"cached": m.cache != nil,
		},
	}
}

func (m *TaskModule) listTasks(ctx context.Context, _ ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.List(ctx)
	if err != nil {
		return ListTasksResponse{}, err
	}
	return ListTasksResponse{Tasks: tasks}, nil
}

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskRecord, error) {
	record, err := m.service.Create(ctx, req.Fields, req.CreatorID)
	if err != nil {
		return TaskRecord{}, err
	}

	m.logger.Info("Task created", "taskID", record.ID, "createdBy", record.CreatedBy)

	if m.eventBus != nil {
		event := events.TaskCreatedEvent{
			TaskID:       record.ID,
			Title:        record.Title,
			Priority:     string(record.Priority),
			Status:       string(record.Status),
			AssignedToID: derefString(record.AssignedTo),
			CreatedByID:  record.CreatedBy,
			CreatedAt:    record.CreatedAt,
		}
		if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskCreated event", "taskID", record.ID, "error", err)
		}
	}

	return record, nil
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskView, error) {
	return m.service.Get(ctx, req.TaskID)
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskRecord, error) {
	record, err := m.service.Update(ctx, req.TaskID, req.Fields)
	if err != nil {
		return TaskRecord{}, err
	}

	m.logger.Info("Task updated", "taskID", record.ID, "updatedBy", req.UpdatedByID)

	if m.eventBus != nil {
		event := events.TaskUpdatedEvent{
			TaskID:       record.ID,
			Title:        record.Title,
			Status:       string(record.Status),
			AssignedToID: derefString(record.AssignedTo),
			UpdatedByID:  req.UpdatedByID,
			UpdatedAt:    record.UpdatedAt,
		}
		if err := events.TaskUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskUpdated event", "taskID", record.ID, "error", err)
		}
	}

	return record, nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if err := m.service.Delete(ctx, req.TaskID); err != nil {
		return DeleteTaskResponse{Deleted: false}, err
	}

	m.logger.Info("Task deleted", "taskID", req.TaskID, "deletedBy", req.DeletedByID)

	if m.eventBus != nil {
		event := events.TaskDeletedEvent{
			TaskID:      req.TaskID,
			DeletedByID: req.DeletedByID,
			DeletedAt:   m.service.now(),
		}
		if err := events.TaskDeletedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskDeleted event", "taskID", req.TaskID, "error", err)
		}
	}

	return DeleteTaskResponse{Deleted: true}, nil
}

func (m *TaskModule) addComment(ctx context.Context, req AddCommentRequest, _ *mono.Msg) (AddCommentResponse, error) {
	commentID, comments, err := m.service.AddComment(ctx, req.TaskID, req.Text, req.AuthorID)
	if err != nil {
		return AddCommentResponse{}, err
	}

	if m.eventBus != nil {
		event := events.CommentAddedEvent{
			TaskID:    req.TaskID,
			CommentID: commentID,
			AuthorID:  req.AuthorID,
			CreatedAt: m.service.now(),
		}
		if err := events.CommentAddedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish CommentAdded event", "taskID", req.TaskID, "error", err)
		}
	}

	return AddCommentResponse{Comments: comments}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
