package api

import (
	"strconv"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"

	"github.com/example/task-management-system/domain/user"
	"github.com/example/task-management-system/modules/auth"
	"github.com/example/task-management-system/modules/notification"
	"github.com/example/task-management-system/modules/task"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth     auth.AuthPort
	tasks    task.TaskPort
	activity notification.ActivityPort
	logger   types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authAdapter auth.AuthPort, taskAdapter task.TaskPort, activityAdapter notification.ActivityPort, logger types.Logger) *Handlers {
	return &Handlers{
		auth:     authAdapter,
		tasks:    taskAdapter,
		activity: activityAdapter,
		logger:   logger,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c)
	}

	if _, err := h.auth.Register(c.UserContext(), auth.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(MessageResponse{
		Message: "User registered successfully",
	})
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c)
	}

	resp, err := h.auth.Login(c.UserContext(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// ListUsers returns every registered user without password hashes.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(users)
}

// ListTasks returns all tasks, newest first.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.tasks.ListTasks(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(tasks)
}

// CreateTask creates a task owned by the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims := caller(c)

	var fields task.TaskFields
	if err := c.BodyParser(&fields); err != nil {
		return h.badRequest(c)
	}

	record, err := h.tasks.CreateTask(c.UserContext(), fields, claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// GetTask returns one task with its references resolved.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	view, err := h.tasks.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// UpdateTask overwrites the editable fields of a task.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims := caller(c)

	var fields task.TaskFields
	if err := c.BodyParser(&fields); err != nil {
		return h.badRequest(c)
	}

	record, err := h.tasks.UpdateTask(c.UserContext(), c.Params("id"), fields, claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(record)
}

// DeleteTask removes a task and its comments.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims := caller(c)

	if err := h.tasks.DeleteTask(c.UserContext(), c.Params("id"), claims.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(MessageResponse{
		Message: "Task deleted successfully",
	})
}

// AddComment appends a comment by the caller and returns all comments.
func (h *Handlers) AddComment(c *fiber.Ctx) error {
	claims := caller(c)

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c)
	}

	comments, err := h.tasks.AddComment(c.UserContext(), c.Params("id"), req.Text, claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comments)
}

// ListActivity returns the recent activity feed, newest first. An optional
// limit query parameter caps the number of entries.
func (h *Handlers) ListActivity(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Message: "Invalid limit",
			})
		}
		limit = n
	}

	activity, err := h.activity.ListActivity(c.UserContext(), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(activity)
}

// caller returns the identity attached by AuthMiddleware.
func caller(c *fiber.Ctx) *user.Claims {
	if claims, ok := c.Locals(UserContextKey).(*user.Claims); ok {
		return claims
	}
	return &user.Claims{}
}

func (h *Handlers) badRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Message: "Invalid request body",
	})
}

// fail writes the mapped error response. Server-side failures are logged.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	status, msg := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Message: msg})
}
