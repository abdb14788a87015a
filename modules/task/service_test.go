package task

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/task-management-system/domain/task"
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

// memoryCache is an in-process CacheService that counts operations.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int

	// beforeSet, when set, runs once ahead of the next Set.
	beforeSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes++
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }
func (c *memoryCache) Close() error               { return nil }

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type fixture struct {
	svc   *TaskService
	cache *memoryCache
	clock time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func setupTestService(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	seedUser(t, db, "u1", "alice")
	seedUser(t, db, "u2", "bob")

	f := &fixture{
		cache: newMemoryCache(),
		clock: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	f.svc = NewTaskService(NewTaskRepository(db), f.cache, &mockLogger{})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestTaskService_Create_Defaults(t *testing.T) {
	f := setupTestService(t)

	record, err := f.svc.Create(context.Background(), TaskFields{Title: "Ship report"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if record.ID == "" {
		t.Error("Create() returned an empty id")
	}
	if record.Title != "Ship report" {
		t.Errorf("Title = %q, want %q", record.Title, "Ship report")
	}
	if record.Priority != domain.PriorityMedium {
		t.Errorf("Priority = %q, want %q", record.Priority, domain.PriorityMedium)
	}
	if record.Status != domain.StatusToDo {
		t.Errorf("Status = %q, want %q", record.Status, domain.StatusToDo)
	}
	if record.CreatedBy != "u1" {
		t.Errorf("CreatedBy = %q, want u1", record.CreatedBy)
	}
	if record.AssignedTo != nil {
		t.Errorf("AssignedTo = %v, want nil", *record.AssignedTo)
	}
	if record.Comments == nil || len(record.Comments) != 0 {
		t.Errorf("Comments = %v, want empty", record.Comments)
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	body := string(data)
	for _, want := range []string{`"title":"Ship report"`, `"status":"To-Do"`, `"priority":"medium"`, `"createdBy":"u1"`, `"assignedTo":null`} {
		if !strings.Contains(body, want) {
			t.Errorf("record JSON missing %s: %s", want, body)
		}
	}
}

func TestTaskService_Create_Validation(t *testing.T) {
	f := setupTestService(t)

	tests := []struct {
		name   string
		fields TaskFields
	}{
		{name: "missing title", fields: TaskFields{}},
		{name: "blank title", fields: TaskFields{Title: "   "}},
		{name: "unknown priority", fields: TaskFields{Title: "x", Priority: "critical"}},
		{name: "unknown status", fields: TaskFields{Title: "x", Status: "Done"}},
		{name: "bad deadline", fields: TaskFields{Title: "x", Deadline: "next tuesday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.fields, "u1")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Create() error = %v, want %v", err, ErrValidation)
			}
		})
	}
}

func TestTaskService_Create_AllFields(t *testing.T) {
	f := setupTestService(t)

	record, err := f.svc.Create(context.Background(), TaskFields{
		Title:       "Quarterly review",
		Description: "Prepare slides",
		Priority:    "urgent",
		Status:      "On-Hold",
		Deadline:    "2024-07-01",
		AssignedTo:  "u2",
	}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if record.AssignedTo == nil || *record.AssignedTo != "u2" {
		t.Errorf("AssignedTo = %v, want u2", record.AssignedTo)
	}
	wantDeadline := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if record.Deadline == nil || !record.Deadline.Equal(wantDeadline) {
		t.Errorf("Deadline = %v, want %v", record.Deadline, wantDeadline)
	}

	view, err := f.svc.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if view.AssignedTo == nil || view.AssignedTo.Username != "bob" {
		t.Errorf("AssignedTo = %+v, want bob", view.AssignedTo)
	}
	if view.CreatedBy == nil || view.CreatedBy.Username != "alice" {
		t.Errorf("CreatedBy = %+v, want alice", view.CreatedBy)
	}
}

func TestTaskService_Update_PreservesCreator(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, TaskFields{Title: "Draft", Description: "v1", Priority: "low"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	f.advance(time.Hour)
	updated, err := f.svc.Update(ctx, created.ID, TaskFields{Title: "Final", Status: "Completed"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.CreatedBy != "u1" {
		t.Errorf("CreatedBy = %q, want u1", updated.CreatedBy)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", updated.CreatedAt, created.CreatedAt)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", updated.UpdatedAt, created.UpdatedAt)
	}
	if updated.Title != "Final" || updated.Status != domain.StatusCompleted {
		t.Errorf("got title=%q status=%q", updated.Title, updated.Status)
	}
	// Omitted fields are cleared.
	if updated.Description != "" || updated.Priority != "" {
		t.Errorf("got description=%q priority=%q, want both cleared", updated.Description, updated.Priority)
	}
}

func TestTaskService_Update_Errors(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	if _, err := f.svc.Update(ctx, "missing", TaskFields{Title: "x"}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Update(missing) error = %v, want %v", err, ErrTaskNotFound)
	}

	created, err := f.svc.Create(ctx, TaskFields{Title: "x"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.Update(ctx, created.ID, TaskFields{Title: "x", Status: "Archived"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Update(bad status) error = %v, want %v", err, ErrValidation)
	}
}

func TestTaskService_Delete(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, TaskFields{Title: "Temporary"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, _, err := f.svc.AddComment(ctx, created.ID, "note", "u2"); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if _, err := f.svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if err := f.svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.cache.has(created.ID) {
		t.Error("cache entry survived Delete")
	}
	if _, err := f.svc.Get(ctx, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get() after Delete error = %v, want %v", err, ErrTaskNotFound)
	}
	if _, _, err := f.svc.AddComment(ctx, created.ID, "late", "u1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("AddComment() after Delete error = %v, want %v", err, ErrTaskNotFound)
	}
	if err := f.svc.Delete(ctx, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("second Delete() error = %v, want %v", err, ErrTaskNotFound)
	}
}

func TestTaskService_Comments_InsertionOrder(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, TaskFields{Title: "Discuss"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	f.advance(time.Minute)
	if _, _, err := f.svc.AddComment(ctx, created.ID, "first", "u1"); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	f.advance(time.Minute)
	commentID, comments, err := f.svc.AddComment(ctx, created.ID, "second", "u2")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if commentID == "" {
		t.Error("AddComment() returned an empty comment id")
	}
	if len(comments) != 2 {
		t.Fatalf("len(comments) = %d, want 2", len(comments))
	}

	view, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(view.Comments) != 2 {
		t.Fatalf("len(view.Comments) = %d, want 2", len(view.Comments))
	}

	want := []struct{ text, author string }{{"first", "alice"}, {"second", "bob"}}
	for i, w := range want {
		c := view.Comments[i]
		if c.Text != w.text {
			t.Errorf("Comments[%d].Text = %q, want %q", i, c.Text, w.text)
		}
		if c.User == nil || c.User.Username != w.author {
			t.Errorf("Comments[%d].User = %+v, want %s", i, c.User, w.author)
		}
	}
	if view.Comments[1].ID != commentID {
		t.Errorf("Comments[1].ID = %q, want %q", view.Comments[1].ID, commentID)
	}
	if !view.UpdatedAt.Equal(f.clock) {
		t.Errorf("UpdatedAt = %v, want %v", view.UpdatedAt, f.clock)
	}
}

func TestTaskService_Comments_SameInstant(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, TaskFields{Title: "Burst"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	texts := []string{"a", "b", "c", "d"}
	var comments []CommentView
	for _, text := range texts {
		if _, comments, err = f.svc.AddComment(ctx, created.ID, text, "u1"); err != nil {
			t.Fatalf("AddComment() error = %v", err)
		}
	}
	for i, text := range texts {
		if comments[i].Text != text {
			t.Errorf("comments[%d].Text = %q, want %q", i, comments[i].Text, text)
		}
	}
}

func TestTaskService_List(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	views, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if views == nil || len(views) != 0 {
		t.Errorf("List() on empty store = %v, want empty slice", views)
	}

	for _, title := range []string{"one", "two", "three"} {
		if _, err := f.svc.Create(ctx, TaskFields{Title: title, AssignedTo: "u2"}, "u1"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		f.advance(time.Second)
	}

	views, err = f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len(views) = %d, want 3", len(views))
	}
	for i, title := range []string{"three", "two", "one"} {
		if views[i].Title != title {
			t.Errorf("views[%d].Title = %q, want %q", i, views[i].Title, title)
		}
		if views[i].AssignedTo == nil || views[i].AssignedTo.Username != "bob" {
			t.Errorf("views[%d].AssignedTo = %+v, want bob", i, views[i].AssignedTo)
		}
	}
}

func TestTaskService_Get_CacheAside(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, TaskFields{Title: "Cached"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if f.cache.has(created.ID) {
		t.Fatal("cache populated before first read")
	}
	if _, err := f.svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !f.cache.has(created.ID) {
		t.Fatal("cache not populated after read")
	}

	f.advance(time.Minute)
	if _, err := f.svc.Update(ctx, created.ID, TaskFields{Title: "Changed"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if f.cache.has(created.ID) {
		t.Error("cache entry survived Update")
	}

	view, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if view.Title != "Changed" {
		t.Errorf("Title = %q, want Changed", view.Title)
	}

	if _, _, err := f.svc.AddComment(ctx, created.ID, "hi", "u2"); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if f.cache.has(created.ID) {
		t.Error("cache entry survived AddComment")
	}
}

func TestTaskService_Get_WriteDuringFill(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, TaskFields{Title: "Before"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The update commits and invalidates after Get loaded the old row but
	// before its cache write lands.
	f.cache.beforeSet = func() {
		if _, err := f.svc.Update(ctx, created.ID, TaskFields{Title: "After"}); err != nil {
			t.Errorf("Update() error = %v", err)
		}
	}

	view, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if view.Title != "Before" {
		t.Fatalf("Title = %q, want the row as loaded", view.Title)
	}
	if f.cache.has(created.ID) {
		t.Fatal("stale view left in cache after a concurrent update")
	}

	view, err = f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if view.Title != "After" {
		t.Errorf("Title = %q, want After", view.Title)
	}
	if !f.cache.has(created.ID) {
		t.Error("cache not populated once writes settled")
	}
}

func TestTaskService_Get_Concurrent(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, TaskFields{Title: "Popular"}, "u1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := f.svc.Get(ctx, created.ID)
			if err == nil && view.Title != "Popular" {
				err = errors.New("unexpected title " + view.Title)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Get() error = %v", err)
		}
	}
}
