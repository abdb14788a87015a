package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	taskdomain "github.com/example/task-management-system/domain/task"
	"github.com/example/task-management-system/modules/auth"
	"github.com/example/task-management-system/modules/cache"
	"github.com/example/task-management-system/modules/notification"
	"github.com/example/task-management-system/modules/storage"
	"github.com/example/task-management-system/modules/task"
)

// testApp is the full module graph running on an in-process NATS connection.
type testApp struct {
	http    *fiber.App
	storage *storage.PluginModule
}

func startTestApp(t *testing.T) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("starts the full application")
	}

	app, err := mono.NewMonoApplication(
		mono.WithNATSDontListen(),
		mono.WithNATSInProcessConn(),
		mono.WithNATSMaxPayload(8*1024*1024),
		mono.WithCustomLogger(&mockLogger{}),
	)
	if err != nil {
		t.Fatalf("NewMonoApplication() error = %v", err)
	}

	storagePlugin := storage.NewPluginModule(storage.Config{Driver: "sqlite", URL: ":memory:"}, &mockLogger{})
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		t.Fatalf("RegisterPlugin(storage) error = %v", err)
	}
	if err := app.RegisterPlugin(cache.NewPluginModule(cache.Config{}, &mockLogger{}), "cache"); err != nil {
		t.Fatalf("RegisterPlugin(cache) error = %v", err)
	}

	apiModule := NewModule(Config{Addr: "127.0.0.1:0"}, &mockLogger{})
	modules := []mono.Module{
		notification.NewModule(notification.DefaultCapacity, &mockLogger{}),
		auth.NewModule(auth.Config{JWTSecret: "integration-secret", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}, &mockLogger{}),
		task.NewModule(&mockLogger{}),
		apiModule,
	}
	for _, m := range modules {
		if err := app.Register(m); err != nil {
			t.Fatalf("Register(%s) error = %v", m.Name(), err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		app.Stop(stopCtx)
	})

	return &testApp{http: apiModule.app, storage: storagePlugin}
}

// signUp registers and logs in a user, returning the session token.
func (a *testApp) signUp(t *testing.T, username string) string {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"secret","role":"employee"}`, username, username)
	if status, resp := doRequest(t, a.http, http.MethodPost, "/api/auth/register", body, ""); status != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", username, status, resp)
	}

	status, resp := doRequest(t, a.http, http.MethodPost, "/api/auth/login",
		fmt.Sprintf(`{"email":"%s@example.com","password":"secret"}`, username), "")
	if status != http.StatusOK {
		t.Fatalf("login %s: status = %d, body = %s", username, status, resp)
	}
	var login auth.LoginResponse
	if err := json.Unmarshal([]byte(resp), &login); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if login.Token == "" {
		t.Fatal("login returned an empty token")
	}
	return login.Token
}

func TestApp_TaskLifecycle(t *testing.T) {
	a := startTestApp(t)
	token := a.signUp(t, "alice")

	status, body := doRequest(t, a.http, http.MethodPost, "/api/tasks", `{"title":"Ship report","priority":"high"}`, token)
	if status != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", status, body)
	}
	var created task.TaskRecord
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	status, body = doRequest(t, a.http, http.MethodGet, "/api/tasks/"+created.ID, "", token)
	if status != http.StatusOK {
		t.Fatalf("get: status = %d, body = %s", status, body)
	}
	var view task.TaskView
	if err := json.Unmarshal([]byte(body), &view); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if view.CreatedBy == nil || view.CreatedBy.Username != "alice" {
		t.Errorf("createdBy = %+v, want alice", view.CreatedBy)
	}

	status, body = doRequest(t, a.http, http.MethodPost, "/api/tasks/"+created.ID+"/comments", `{"text":"on it"}`, token)
	if status != http.StatusCreated {
		t.Fatalf("comment: status = %d, body = %s", status, body)
	}

	status, body = doRequest(t, a.http, http.MethodPut, "/api/tasks/"+created.ID, `{"title":"Ship final report","status":"Completed"}`, token)
	if status != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", status, body)
	}

	status, body = doRequest(t, a.http, http.MethodDelete, "/api/tasks/"+created.ID, "", token)
	if status != http.StatusOK || body != `{"message":"Task deleted successfully"}` {
		t.Fatalf("delete: status = %d, body = %s", status, body)
	}

	status, body = doRequest(t, a.http, http.MethodGet, "/api/tasks/"+created.ID, "", token)
	if status != http.StatusNotFound || body != `{"message":"Task not found"}` {
		t.Errorf("get after delete: status = %d, body = %s", status, body)
	}
}

func TestApp_ErrorsAcrossServices(t *testing.T) {
	a := startTestApp(t)
	token := a.signUp(t, "alice")

	status, body := doRequest(t, a.http, http.MethodPost, "/api/tasks", `{"title":"Target"}`, token)
	if status != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", status, body)
	}
	var created task.TaskRecord
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "duplicate registration",
			method:     http.MethodPost,
			path:       "/api/auth/register",
			body:       `{"username":"alice","email":"alice@example.com","password":"secret"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"User already exists"}`,
		},
		{
			name:       "wrong password",
			method:     http.MethodPost,
			path:       "/api/auth/login",
			body:       `{"email":"alice@example.com","password":"wrong"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"Invalid credentials"}`,
		},
		{
			name:       "unknown task",
			method:     http.MethodGet,
			path:       "/api/tasks/does-not-exist",
			token:      token,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"message":"Task not found"}`,
		},
		{
			name:       "missing title",
			method:     http.MethodPost,
			path:       "/api/tasks",
			body:       `{"description":"no title"}`,
			token:      token,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"task validation failed: title is required"}`,
		},
		{
			name:       "status naming a sentinel stays a validation failure",
			method:     http.MethodPut,
			path:       "/api/tasks/" + created.ID,
			body:       `{"title":"Target","status":"task not found"}`,
			token:      token,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "{\"message\":\"task validation failed: `task not found` is not a valid status\"}",
		},
		{
			name:       "forged token",
			method:     http.MethodGet,
			path:       "/api/tasks",
			token:      "not-a-jwt",
			wantStatus: http.StatusForbidden,
			wantBody:   `{"message":"Invalid token"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, a.http, tt.method, tt.path, tt.body, tt.token)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", status, tt.wantStatus, body)
			}
			if body != tt.wantBody {
				t.Errorf("body = %s, want %s", body, tt.wantBody)
			}
			if strings.Contains(body, "remote service") || strings.Contains(body, "(wrap)") {
				t.Errorf("body leaks transport detail: %s", body)
			}
		})
	}
}

func TestApp_ListBeyondDefaultPayload(t *testing.T) {
	a := startTestApp(t)
	token := a.signUp(t, "alice")

	status, body := doRequest(t, a.http, http.MethodGet, "/api/users", "", token)
	if status != http.StatusOK {
		t.Fatalf("list users: status = %d, body = %s", status, body)
	}
	var users []struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal([]byte(body), &users); err != nil || len(users) != 1 {
		t.Fatalf("list users = %s (err %v)", body, err)
	}

	// About 2 MB of rows, twice the NATS default max payload.
	const count = 1000
	description := strings.Repeat("x", 2048)
	now := time.Now().UTC()
	tasks := make([]taskdomain.Task, count)
	for i := range tasks {
		tasks[i] = taskdomain.Task{
			ID:          fmt.Sprintf("bulk-%04d", i),
			Title:       fmt.Sprintf("Bulk task %d", i),
			Description: description,
			Priority:    taskdomain.PriorityLow,
			Status:      taskdomain.StatusToDo,
			CreatedByID: users[0].ID,
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
			UpdatedAt:   now,
		}
	}
	if err := a.storage.DB().CreateInBatches(tasks, 200).Error; err != nil {
		t.Fatalf("CreateInBatches() error = %v", err)
	}

	status, body = doRequest(t, a.http, http.MethodGet, "/api/tasks", "", token)
	if status != http.StatusOK {
		t.Fatalf("list tasks: status = %d, body = %.200s", status, body)
	}
	var listed []task.TaskView
	if err := json.Unmarshal([]byte(body), &listed); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(listed) != count {
		t.Fatalf("len(tasks) = %d, want %d", len(listed), count)
	}
	if listed[0].ID != "bulk-0999" {
		t.Errorf("first task = %s, want the newest", listed[0].ID)
	}
}

func TestApp_ActivityFeed(t *testing.T) {
	a := startTestApp(t)
	token := a.signUp(t, "alice")

	if status, body := doRequest(t, a.http, http.MethodPost, "/api/tasks", `{"title":"Observed"}`, token); status != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", status, body)
	}

	// Events are delivered asynchronously.
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, body := doRequest(t, a.http, http.MethodGet, "/api/activity", "", token)
		if status != http.StatusOK {
			t.Fatalf("activity: status = %d, body = %s", status, body)
		}
		var activity []notification.Activity
		if err := json.Unmarshal([]byte(body), &activity); err != nil {
			t.Fatalf("json.Unmarshal() error = %v", err)
		}
		if len(activity) == 2 {
			if activity[0].Type != "task_created" || activity[1].Type != "user_registered" {
				t.Errorf("activity = %+v, want task_created then user_registered", activity)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("activity = %+v, want 2 entries", activity)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
