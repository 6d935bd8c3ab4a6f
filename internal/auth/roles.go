package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// Require is the route-level guard: the authenticated principal's role
// must permit action. Ownership is checked later, once the target is loaded.
func Require(action Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if err := Authorize(principal, action, nil); err != nil {
			return err
		}
		return c.Next()
	}
}
