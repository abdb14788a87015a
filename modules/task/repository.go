package task

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/example/task-management-system/domain/task"
)

// TaskRepository persists tasks and their comment rows using GORM.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func selectHandle(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username")
}

func orderComments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// withRefs preloads the creator, the assignee and every comment author.
// Only the id and handle of each user are loaded.
func withRefs(db *gorm.DB) *gorm.DB {
	return db.
		Preload("AssignedTo", selectHandle).
		Preload("CreatedBy", selectHandle).
		Preload("Comments", orderComments).
		Preload("Comments.User", selectHandle)
}

// List returns every task, newest first, with references resolved.
func (r *TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	result := withRefs(r.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// FindByID returns a task with references resolved.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	result := withRefs(r.db.WithContext(ctx)).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// FindRecord returns a task with its comments but no user rows.
func (r *TaskRepository) FindRecord(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	result := r.db.WithContext(ctx).
		Preload("Comments", orderComments).
		First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// Create inserts a new task. Associations are never written through.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// Replace overwrites every editable column of the task. Zero values clear
// the stored field. The creator and creation time are left untouched.
func (r *TaskRepository) Replace(ctx context.Context, task *domain.Task) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"title":          task.Title,
			"description":    task.Description,
			"priority":       task.Priority,
			"status":         task.Status,
			"deadline":       task.Deadline,
			"assigned_to_id": task.AssignedToID,
			"updated_at":     task.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes the task and all of its comments in one transaction.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Task{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return tx.Delete(&domain.Comment{}, "task_id = ?", id).Error
	})
}

// AppendComment stores the comment and refreshes the task's update time in
// one transaction, then returns the task's comments with authors resolved.
func (r *TaskRepository) AppendComment(ctx context.Context, comment *domain.Comment, updatedAt time.Time) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Task{}).
			Where("id = ?", comment.TaskID).
			UpdateColumn("updated_at", updatedAt)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}

		return tx.Preload("User", selectHandle).
			Where("task_id = ?", comment.TaskID).
			Order("created_at ASC, id ASC").
			Find(&comments).Error
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}
