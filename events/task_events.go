package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserRegisteredEvent is emitted when a new account is created.
type UserRegisteredEvent struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserRegisteredV1 is the typed event definition for registrations.
// Subject: events.auth.v1.user-registered
var UserRegisteredV1 = helper.EventDefinition[UserRegisteredEvent](
	"auth", "UserRegistered", "v1",
)

// TaskCreatedEvent is emitted when a new task is created.
type TaskCreatedEvent struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	AssignedToID string    `json:"assigned_to_id,omitempty"`
	CreatedByID  string    `json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.task.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"task", "TaskCreated", "v1",
)

// TaskUpdatedEvent is emitted after a task has been overwritten.
type TaskUpdatedEvent struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	AssignedToID string    `json:"assigned_to_id,omitempty"`
	UpdatedByID  string    `json:"updated_by_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TaskUpdatedV1 is the typed event definition for task updates.
// Subject: events.task.v1.task-updated
var TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
	"task", "TaskUpdated", "v1",
)

// TaskDeletedEvent is emitted when a task and its comments are removed.
type TaskDeletedEvent struct {
	TaskID      string    `json:"task_id"`
	DeletedByID string    `json:"deleted_by_id"`
	DeletedAt   time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
// Subject: events.task.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"task", "TaskDeleted", "v1",
)

// CommentAddedEvent is emitted when a comment is appended to a task.
type CommentAddedEvent struct {
	TaskID    string    `json:"task_id"`
	CommentID string    `json:"comment_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentAddedV1 is the typed event definition for new comments.
// Subject: events.task.v1.comment-added
var CommentAddedV1 = helper.EventDefinition[CommentAddedEvent](
	"task", "CommentAdded", "v1",
)
