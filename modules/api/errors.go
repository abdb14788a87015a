package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/task-management-system/modules/auth"
	"github.com/example/task-management-system/modules/task"
)

// ErrMissingToken is returned when a protected request carries no token.
var ErrMissingToken = errors.New("Access denied")

// Client-facing messages for the mapped failures.
const (
	msgInvalidToken       = "Invalid token"
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgTaskNotFound       = "Task not found"
)

// errorStatus maps a failure to its HTTP status and client message.
// Unrecognised failures are exposed as-is with status 500.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingToken):
		return fiber.StatusUnauthorized, ErrMissingToken.Error()
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return fiber.StatusForbidden, msgInvalidToken
	case errors.Is(err, auth.ErrUserExists):
		return fiber.StatusBadRequest, msgUserExists
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fiber.StatusBadRequest, msgInvalidCredentials
	case errors.Is(err, task.ErrTaskNotFound):
		return fiber.StatusNotFound, msgTaskNotFound
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, err.Error()
}

// errorHandler is the fiber ErrorHandler; it renders errors as {message}.
func errorHandler(c *fiber.Ctx, err error) error {
	status, msg := errorStatus(err)
	return c.Status(status).JSON(ErrorResponse{Message: msg})
}
