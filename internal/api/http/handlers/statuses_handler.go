package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/task-manager/internal/api/dto"
	"github.com/taskforge/task-manager/internal/service"
)

// StatusesHandler serves /task_statuses.
type StatusesHandler struct {
	statuses *service.StatusService
}

// NewStatusesHandler constructs handler.
func NewStatusesHandler(statuses *service.StatusService) *StatusesHandler {
	return &StatusesHandler{statuses: statuses}
}

// List handles GET /task_statuses.
func (h *StatusesHandler) List(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	statuses, err := h.statuses.List(c.UserContext(), principal)
	if err != nil {
		return err
	}
	setTotal(c, len(statuses))
	return c.JSON(dto.FromStatuses(statuses))
}

// Get handles GET /task_statuses/:id.
func (h *StatusesHandler) Get(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "task status")
	if err != nil {
		return err
	}
	status, err := h.statuses.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromStatus(status))
}

// Create handles POST /task_statuses.
func (h *StatusesHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.StatusCreateRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	status, err := h.statuses.Create(c.UserContext(), principal, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromStatus(status))
}

// Update handles PUT and PATCH /task_statuses/:id.
func (h *StatusesHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "task status")
	if err != nil {
		return err
	}
	var req dto.StatusUpdateRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	status, err := h.statuses.Update(c.UserContext(), principal, id, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.FromStatus(status))
}

// Delete handles DELETE /task_statuses/:id.
func (h *StatusesHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "task status")
	if err != nil {
		return err
	}
	if err := h.statuses.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
