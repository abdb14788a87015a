package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domain "github.com/example/task-management-system/domain/task"
	"github.com/example/task-management-system/modules/cache"
)

// TaskService implements the task operations on top of the repository.
// Resolved single-task views are served cache-aside.
type TaskService struct {
	repo    *TaskRepository
	cache   cache.CacheService
	sfGroup singleflight.Group
	// writes counts invalidations. A view loaded before the count moved may
	// be stale and is not left in the cache.
	writes  atomic.Uint64
	logger types.Logger
	now    func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo *TaskRepository, c cache.CacheService, logger types.Logger) *TaskService {
	if c == nil {
		c = cache.NewNoopCache()
	}
	return &TaskService{
		repo:   repo,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// editable holds parsed TaskFields.
type editable struct {
	title       string
	description string
	priority    domain.Priority
	status      domain.Status
	deadline    *time.Time
	assignedTo  *string
}

func parseFields(f TaskFields) (editable, error) {
	e := editable{
		title:       f.Title,
		description: f.Description,
		priority:    domain.Priority(f.Priority),
		status:      domain.Status(f.Status),
		assignedTo:  domain.ParseAssignee(f.AssignedTo),
	}
	if e.priority != "" && !e.priority.Valid() {
		return editable{}, fmt.Errorf("%w: `%s` is not a valid priority", ErrValidation, f.Priority)
	}
	if e.status != "" && !e.status.Valid() {
		return editable{}, fmt.Errorf("%w: `%s` is not a valid status", ErrValidation, f.Status)
	}
	deadline, err := domain.ParseDeadline(f.Deadline)
	if err != nil {
		return editable{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	e.deadline = deadline
	return e, nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// List returns all tasks, newest first, with references resolved.
func (s *TaskService) List(ctx context.Context) ([]TaskView, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, toView(&tasks[i]))
	}
	return views, nil
}

// Create inserts a task owned by creatorID. Priority defaults to medium and
// status to To-Do.
func (s *TaskService) Create(ctx context.Context, fields TaskFields, creatorID string) (TaskRecord, error) {
	e, err := parseFields(fields)
	if err != nil {
		return TaskRecord{}, err
	}
	if strings.TrimSpace(e.title) == "" {
		return TaskRecord{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if e.priority == "" {
		e.priority = domain.PriorityMedium
	}
	if e.status == "" {
		e.status = domain.StatusToDo
	}

	id, err := newID()
	if err != nil {
		return TaskRecord{}, fmt.Errorf("failed to generate task id: %w", err)
	}

	now := s.now()
	t := &domain.Task{
		ID:           id,
		Title:        e.title,
		Description:  e.description,
		Priority:     e.priority,
		Status:       e.status,
		Deadline:     e.deadline,
		AssignedToID: e.assignedTo,
		CreatedByID:  creatorID,
		Comments:     []domain.Comment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return TaskRecord{}, fmt.Errorf("failed to create task: %w", err)
	}

	return toRecord(t), nil
}

// Get returns one task with references resolved.
func (s *TaskService) Get(ctx context.Context, id string) (TaskView, error) {
	var cached TaskView
	found, err := s.cache.Get(ctx, id, &cached)
	if err != nil {
		s.logger.Warn("Cache read failed", "taskID", id, "error", err)
	}
	if found {
		s.logger.Debug("Cache hit", "taskID", id)
		return cached, nil
	}

	gen := s.writes.Load()
	val, err, _ := s.sfGroup.Do(fmt.Sprintf("task:%s:%d", id, gen), func() (any, error) {
		t, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return toView(t), nil
	})
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return TaskView{}, err
		}
		return TaskView{}, fmt.Errorf("failed to get task: %w", err)
	}

	view := val.(TaskView)
	s.fill(ctx, id, gen, view)
	return view, nil
}

// fill caches a view loaded at generation gen. If a write was invalidated
// meanwhile, the entry is removed again; the writer's own delete may already
// have run before this Set.
func (s *TaskService) fill(ctx context.Context, id string, gen uint64, view TaskView) {
	if err := s.cache.Set(ctx, id, view); err != nil {
		s.logger.Warn("Cache write failed", "taskID", id, "error", err)
		return
	}
	if s.writes.Load() == gen {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("Cache invalidation failed", "taskID", id, "error", err)
	}
}

// Update overwrites the editable fields of a task. Omitted fields are
// cleared; the creator and creation time never change.
func (s *TaskService) Update(ctx context.Context, id string, fields TaskFields) (TaskRecord, error) {
	e, err := parseFields(fields)
	if err != nil {
		return TaskRecord{}, err
	}

	t := &domain.Task{
		ID:           id,
		Title:        e.title,
		Description:  e.description,
		Priority:     e.priority,
		Status:       e.status,
		Deadline:     e.deadline,
		AssignedToID: e.assignedTo,
		UpdatedAt:    s.now(),
	}
	if err := s.repo.Replace(ctx, t); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return TaskRecord{}, err
		}
		return TaskRecord{}, fmt.Errorf("failed to update task: %w", err)
	}
	s.invalidate(ctx, id)

	updated, err := s.repo.FindRecord(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return TaskRecord{}, err
		}
		return TaskRecord{}, fmt.Errorf("failed to reload task: %w", err)
	}
	return toRecord(updated), nil
}

// Delete removes a task and its comments.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// AddComment appends a comment by authorID and returns the new comment's id
// with the task's full comment sequence in insertion order.
func (s *TaskService) AddComment(ctx context.Context, taskID, text, authorID string) (string, []CommentView, error) {
	id, err := newID()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate comment id: %w", err)
	}

	now := s.now()
	comment := &domain.Comment{
		ID:        id,
		TaskID:    taskID,
		Text:      text,
		UserID:    authorID,
		CreatedAt: now,
	}
	comments, err := s.repo.AppendComment(ctx, comment, now)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("failed to add comment: %w", err)
	}
	s.invalidate(ctx, taskID)

	return id, toCommentViews(comments), nil
}

func (s *TaskService) invalidate(ctx context.Context, id string) {
	s.writes.Add(1)
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("Cache invalidation failed", "taskID", id, "error", err)
	}
}
