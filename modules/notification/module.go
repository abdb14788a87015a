package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/task-management-system/events"
)

// DefaultCapacity bounds the in-memory activity list.
const DefaultCapacity = 500

// Activity is one recorded domain event.
type Activity struct {
	SubjectID string    `json:"subject_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationModule records auth and task events as an activity feed.
type NotificationModule struct {
	activities []Activity
	capacity   int
	mu         sync.RWMutex
	logger     types.Logger
}

var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)
var _ mono.ServiceProviderModule = (*NotificationModule)(nil)

// NewModule creates a NotificationModule keeping at most capacity entries.
// A non-positive capacity uses DefaultCapacity.
func NewModule(capacity int, logger types.Logger) *NotificationModule {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &NotificationModule{
		activities: make([]Activity, 0),
		capacity:   capacity,
		logger:     logger,
	}
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.CommentAddedV1, m.handleCommentAdded, m); err != nil {
		return fmt.Errorf("failed to register CommentAdded consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"UserRegistered", "TaskCreated", "TaskUpdated", "TaskDeleted", "CommentAdded"})
	return nil
}

// RegisterServices exposes the activity feed as the list-activity service.
func (m *NotificationModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-activity", json.Unmarshal, json.Marshal, m.handleListActivity,
	); err != nil {
		return fmt.Errorf("failed to register list-activity service: %w", err)
	}
	return nil
}

func (m *NotificationModule) handleListActivity(_ context.Context, req ListActivityRequest, _ *mono.Msg) (ListActivityResponse, error) {
	return ListActivityResponse{Activities: m.recent(req.Limit)}, nil
}

func (m *NotificationModule) handleUserRegistered(_ context.Context, event events.UserRegisteredEvent, _ *mono.Msg) error {
	m.logger.Info("User registered", "userID", event.UserID, "username", event.Username, "role", event.Role)
	m.record(Activity{
		SubjectID: event.UserID,
		Type:      "user_registered",
		Message:   fmt.Sprintf("User '%s' joined as %s", event.Username, event.Role),
		ActorID:   event.UserID,
		Timestamp: event.RegisteredAt,
	})
	return nil
}

func (m *NotificationModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.logger.Info("Task created", "taskID", event.TaskID, "title", event.Title)
	msg := fmt.Sprintf("New task '%s' (%s, %s)", event.Title, event.Priority, event.Status)
	if event.AssignedToID != "" {
		msg += fmt.Sprintf(" assigned to %s", event.AssignedToID)
	}
	m.record(Activity{
		SubjectID: event.TaskID,
		Type:      "task_created",
		Message:   msg,
		ActorID:   event.CreatedByID,
		Timestamp: event.CreatedAt,
	})
	return nil
}

func (m *NotificationModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.logger.Info("Task updated", "taskID", event.TaskID, "status", event.Status)
	m.record(Activity{
		SubjectID: event.TaskID,
		Type:      "task_updated",
		Message:   fmt.Sprintf("Task '%s' is now %s", event.Title, event.Status),
		ActorID:   event.UpdatedByID,
		Timestamp: event.UpdatedAt,
	})
	return nil
}

func (m *NotificationModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.logger.Info("Task deleted", "taskID", event.TaskID)
	m.record(Activity{
		SubjectID: event.TaskID,
		Type:      "task_deleted",
		Message:   fmt.Sprintf("Task %s deleted", event.TaskID),
		ActorID:   event.DeletedByID,
		Timestamp: event.DeletedAt,
	})
	return nil
}

func (m *NotificationModule) handleCommentAdded(_ context.Context, event events.CommentAddedEvent, _ *mono.Msg) error {
	m.logger.Info("Comment added", "taskID", event.TaskID, "commentID", event.CommentID)
	m.record(Activity{
		SubjectID: event.TaskID,
		Type:      "comment_added",
		Message:   fmt.Sprintf("New comment on task %s", event.TaskID),
		ActorID:   event.AuthorID,
		Timestamp: event.CreatedAt,
	})
	return nil
}

// record appends a, dropping the oldest entry once capacity is reached.
func (m *NotificationModule) record(a Activity) {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.activities) >= m.capacity {
		m.activities = append(m.activities[:0], m.activities[1:]...)
	}
	m.activities = append(m.activities, a)
}

// GetNotifications returns a copy of the recorded activity, oldest first.
func (m *NotificationModule) GetNotifications() []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Activity, len(m.activities))
	copy(result, m.activities)
	return result
}

// recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (m *NotificationModule) recent(limit int) []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.activities)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]Activity, 0, n)
	for i := len(m.activities) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.activities[i])
	}
	return result
}

func (m *NotificationModule) Start(_ context.Context) error {
	m.logger.Info("Module started, listening for auth and task events")
	return nil
}

func (m *NotificationModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped", "recorded", len(m.GetNotifications()))
	return nil
}
