package api

import (
	"strings"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"

	"github.com/example/task-management-system/modules/auth"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
)

// bearerToken returns the second space-separated segment of the
// Authorization header, or "" when there is none.
func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// AuthMiddleware creates a middleware that validates session tokens.
func AuthMiddleware(authAdapter auth.AuthPort, logger types.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Message: ErrMissingToken.Error(),
			})
		}

		claims, err := authAdapter.ValidateToken(c.UserContext(), token)
		if err != nil {
			logger.Debug("Token rejected", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Message: msgInvalidToken,
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}
