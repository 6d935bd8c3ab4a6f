package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/task-manager/internal/api/dto"
	"github.com/taskforge/task-manager/internal/service"
)

// LabelsHandler serves /labels.
type LabelsHandler struct {
	labels *service.LabelService
}

// NewLabelsHandler constructs handler.
func NewLabelsHandler(labels *service.LabelService) *LabelsHandler {
	return &LabelsHandler{labels: labels}
}

// List handles GET /labels.
func (h *LabelsHandler) List(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	labels, err := h.labels.List(c.UserContext(), principal)
	if err != nil {
		return err
	}
	setTotal(c, len(labels))
	return c.JSON(dto.FromLabels(labels))
}

// Get handles GET /labels/:id.
func (h *LabelsHandler) Get(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "label")
	if err != nil {
		return err
	}
	label, err := h.labels.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromLabel(label))
}

// Create handles POST /labels.
func (h *LabelsHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.LabelRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	label, err := h.labels.Create(c.UserContext(), principal, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromLabel(label))
}

// Update handles PUT and PATCH /labels/:id.
func (h *LabelsHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "label")
	if err != nil {
		return err
	}
	var req dto.LabelRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	label, err := h.labels.Update(c.UserContext(), principal, id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromLabel(label))
}

// Delete handles DELETE /labels/:id.
func (h *LabelsHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "label")
	if err != nil {
		return err
	}
	if err := h.labels.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
