package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/task-manager/internal/api/dto"
	"github.com/taskforge/task-manager/internal/service"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login. Every credential failure, including an
// unreadable body, is the same 401.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	result, err := h.auth.Login(c.UserContext(), req.Login(), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{AccessToken: result.AccessToken, ExpiresAt: result.ExpiresAt})
}
