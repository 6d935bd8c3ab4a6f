package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/task-manager/internal/api/http/handlers"
	"github.com/taskforge/task-manager/internal/auth"
)

// PublicPaths are served without a bearer token.
var PublicPaths = []string{"/auth/login", "/health/live", "/health/ready"}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Tasks    *handlers.TasksHandler
	Users    *handlers.UsersHandler
	Statuses *handlers.StatusesHandler
	Labels   *handlers.LabelsHandler
	Gate     *auth.Gate
}

// RegisterRoutes wires HTTP routes behind the authentication gate.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Gate.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", auth.Require(auth.ActionSystemMetrics), cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Auth.Login)

	tasks := app.Group("/tasks")
	tasks.Get("/", auth.Require(auth.ActionTaskRead), cfg.Tasks.List)
	tasks.Get("/:id", auth.Require(auth.ActionTaskRead), cfg.Tasks.Get)
	tasks.Post("/", auth.Require(auth.ActionTaskCreate), cfg.Tasks.Create)
	tasks.Put("/:id", auth.Require(auth.ActionTaskUpdate), cfg.Tasks.Update)
	tasks.Patch("/:id", auth.Require(auth.ActionTaskUpdate), cfg.Tasks.Update)
	tasks.Delete("/:id", auth.Require(auth.ActionTaskDelete), cfg.Tasks.Delete)

	users := app.Group("/users")
	users.Get("/", auth.Require(auth.ActionUserRead), cfg.Users.List)
	users.Get("/:id", auth.Require(auth.ActionUserRead), cfg.Users.Get)
	users.Post("/", auth.Require(auth.ActionUserCreate), cfg.Users.Create)
	users.Put("/:id", auth.Require(auth.ActionUserUpdate), cfg.Users.Update)
	users.Patch("/:id", auth.Require(auth.ActionUserUpdate), cfg.Users.Update)
	users.Delete("/:id", auth.Require(auth.ActionUserDelete), cfg.Users.Delete)

	statuses := app.Group("/task_statuses")
	statuses.Get("/", auth.Require(auth.ActionStatusRead), cfg.Statuses.List)
	statuses.Get("/:id", auth.Require(auth.ActionStatusRead), cfg.Statuses.Get)
	statuses.Post("/", auth.Require(auth.ActionStatusManage), cfg.Statuses.Create)
	statuses.Put("/:id", auth.Require(auth.ActionStatusManage), cfg.Statuses.Update)
	statuses.Patch("/:id", auth.Require(auth.ActionStatusManage), cfg.Statuses.Update)
	statuses.Delete("/:id", auth.Require(auth.ActionStatusManage), cfg.Statuses.Delete)

	labels := app.Group("/labels")
	labels.Get("/", auth.Require(auth.ActionLabelRead), cfg.Labels.List)
	labels.Get("/:id", auth.Require(auth.ActionLabelRead), cfg.Labels.Get)
	labels.Post("/", auth.Require(auth.ActionLabelManage), cfg.Labels.Create)
	labels.Put("/:id", auth.Require(auth.ActionLabelManage), cfg.Labels.Update)
	labels.Patch("/:id", auth.Require(auth.ActionLabelManage), cfg.Labels.Update)
	labels.Delete("/:id", auth.Require(auth.ActionLabelManage), cfg.Labels.Delete)
}
