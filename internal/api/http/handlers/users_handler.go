package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/task-manager/internal/api/dto"
	"github.com/taskforge/task-manager/internal/service"
)

// UsersHandler serves /users.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	users, err := h.users.List(c.UserContext(), principal)
	if err != nil {
		return err
	}
	setTotal(c, len(users))
	return c.JSON(dto.FromUsers(users))
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "user")
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromUser(user))
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UserCreateRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), principal, req.ToInput())
	if err != nil {
		return err
	}
	c.Location("/users/" + itoa(user.ID))
	return c.Status(http.StatusCreated).JSON(dto.FromUser(user))
}

// Update handles PUT and PATCH /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "user")
	if err != nil {
		return err
	}
	var req dto.UserUpdateRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), principal, id, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.FromUser(user))
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "user")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
