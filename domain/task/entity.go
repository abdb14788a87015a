package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/task-management-system/domain/user"
)

// Priority represents how urgent a task is.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Status represents the workflow state of a task.
type Status string

const (
	StatusToDo       Status = "To-Do"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusOnHold     Status = "On-Hold"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// Task is the unit of work. It owns its Comments; users are only referenced.
type Task struct {
	ID           string     `gorm:"primaryKey;type:text"`
	Title        string     `gorm:"type:text"`
	Description  string     `gorm:"type:text"`
	Priority     Priority   `gorm:"type:text"`
	Status       Status     `gorm:"type:text"`
	Deadline     *time.Time
	AssignedToID *string    `gorm:"type:text;index"`
	AssignedTo   *user.User `gorm:"foreignKey:AssignedToID"`
	CreatedByID  string     `gorm:"type:text;index;not null"`
	CreatedBy    *user.User `gorm:"foreignKey:CreatedByID"`
	Comments     []Comment  `gorm:"foreignKey:TaskID"`
	CreatedAt    time.Time  `gorm:"index"`
	UpdatedAt    time.Time
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Comment is an append-only note attached to a task.
type Comment struct {
	ID        string     `gorm:"primaryKey;type:text"`
	TaskID    string     `gorm:"type:text;index;not null"`
	Text      string     `gorm:"type:text"`
	UserID    string     `gorm:"type:text;not null"`
	User      *user.User `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
}

// TableName returns the table name for the Comment entity.
func (Comment) TableName() string {
	return "task_comments"
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDeadline parses a client supplied deadline.
// An empty string means no deadline.
func ParseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("deadline: cannot parse %q as a date", raw)
}

// ParseAssignee normalizes an assignee reference. Empty means unassigned.
func ParseAssignee(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
