package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/task-manager/internal/api/dto"
	"github.com/taskforge/task-manager/internal/filter"
	"github.com/taskforge/task-manager/internal/service"
)

// TasksHandler serves /tasks.
type TasksHandler struct {
	tasks   *service.TaskService
	builder *filter.Builder
}

// NewTasksHandler constructs handler.
func NewTasksHandler(tasks *service.TaskService, builder *filter.Builder) *TasksHandler {
	return &TasksHandler{tasks: tasks, builder: builder}
}

// List handles GET /tasks. Filters, paging and sort are parsed together so
// one response reports every bad parameter.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	query, err := h.builder.ParseQuery(queryValues(c))
	if err != nil {
		return err
	}

	page, err := h.tasks.List(c.UserContext(), principal, query)
	if err != nil {
		return err
	}
	setTotal(c, int(page.TotalCount))
	return c.JSON(dto.FromTaskPage(page))
}

// Get handles GET /tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "task")
	if err != nil {
		return err
	}

	task, err := h.tasks.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTask(task))
}

// Create handles POST /tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.TaskCreateRequest
	if err := decode(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.Create(c.UserContext(), principal, req.ToInput())
	if err != nil {
		return err
	}
	c.Location("/tasks/" + itoa(task.ID))
	return c.Status(http.StatusCreated).JSON(dto.FromTask(task))
}

// Update handles PUT and PATCH /tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "task")
	if err != nil {
		return err
	}
	var req dto.TaskUpdateRequest
	if err := decode(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.Update(c.UserContext(), principal, id, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTask(task))
}

// Delete handles DELETE /tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "task")
	if err != nil {
		return err
	}

	if err := h.tasks.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
