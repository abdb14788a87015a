package task

import (
	"time"

	domain "github.com/example/task-management-system/domain/task"
	"github.com/example/task-management-system/domain/user"
)

// TaskFields are the client-editable task attributes. Create and update
// accept the same set; the creator is never part of it.
type TaskFields struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	AssignedTo  string `json:"assignedTo,omitempty"`
}

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	Fields    TaskFields `json:"fields"`
	CreatorID string     `json:"creator_id"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

// UpdateTaskRequest is the request for overwriting a task.
type UpdateTaskRequest struct {
	TaskID      string     `json:"task_id"`
	Fields      TaskFields `json:"fields"`
	UpdatedByID string     `json:"updated_by_id"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	TaskID      string `json:"task_id"`
	DeletedByID string `json:"deleted_by_id"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
}

// ListTasksRequest is the request for listing tasks.
type ListTasksRequest struct{}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks []TaskView `json:"tasks"`
}

// AddCommentRequest is the request for appending a comment.
type AddCommentRequest struct {
	TaskID   string `json:"task_id"`
	Text     string `json:"text"`
	AuthorID string `json:"author_id"`
}

// AddCommentResponse carries the task's full comment sequence.
type AddCommentResponse struct {
	Comments []CommentView `json:"comments"`
}

// CommentRecord is a comment with its author as a bare id.
type CommentRecord struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskRecord is a task with user references as bare ids.
// It is returned by create and update.
type TaskRecord struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty"`
	Status      domain.Status   `json:"status,omitempty"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	AssignedTo  *string         `json:"assignedTo"`
	CreatedBy   string          `json:"createdBy"`
	Comments    []CommentRecord `json:"comments"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CommentView is a comment with its author resolved to a handle.
type CommentView struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	User      *user.Ref `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskView is a task with user references resolved to handles.
// A reference to a user that no longer exists resolves to null.
type TaskView struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty"`
	Status      domain.Status   `json:"status,omitempty"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	AssignedTo  *user.Ref       `json:"assignedTo"`
	CreatedBy   *user.Ref       `json:"createdBy"`
	Comments    []CommentView   `json:"comments"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toRef(u *user.User) *user.Ref {
	if u == nil {
		return nil
	}
	return &user.Ref{ID: u.ID, Username: u.Username}
}

func toRecord(t *domain.Task) TaskRecord {
	comments := make([]CommentRecord, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, CommentRecord{
			ID:        c.ID,
			Text:      c.Text,
			User:      c.UserID,
			CreatedAt: c.CreatedAt,
		})
	}
	return TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Deadline:    t.Deadline,
		AssignedTo:  t.AssignedToID,
		CreatedBy:   t.CreatedByID,
		Comments:    comments,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toCommentViews(comments []domain.Comment) []CommentView {
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, CommentView{
			ID:        c.ID,
			Text:      c.Text,
			User:      toRef(c.User),
			CreatedAt: c.CreatedAt,
		})
	}
	return views
}

func toView(t *domain.Task) TaskView {
	return TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Deadline:    t.Deadline,
		AssignedTo:  toRef(t.AssignedTo),
		CreatedBy:   toRef(t.CreatedBy),
		Comments:    toCommentViews(t.Comments),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
