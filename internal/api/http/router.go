package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/company-directory/internal/api/http/handlers"
	"github.com/spec-kit/company-directory/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Departments *handlers.DepartmentHandler
	Employees   *handlers.EmployeeHandler
	// AuthMiddleware guards mutating routes when set.
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	var write []fiber.Handler
	if cfg.AuthMiddleware != nil {
		write = []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireScope(auth.ScopeWrite)}
	}
	guarded := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, write...), h)
	}

	departments := app.Group("/departments")
	departments.Get("/", cfg.Departments.List)
	departments.Get("/:id", cfg.Departments.Get)
	departments.Post("/", guarded(cfg.Departments.Create)...)
	departments.Patch("/", guarded(cfg.Departments.UpdateMany)...)
	departments.Delete("/", guarded(cfg.Departments.DeleteMany)...)
	departments.Put("/:id", guarded(cfg.Departments.Update)...)
	departments.Delete("/:id", guarded(cfg.Departments.Delete)...)

	employees := app.Group("/employees")
	employees.Get("/", cfg.Employees.List)
	employees.Get("/:id", cfg.Employees.Get)
	employees.Post("/", guarded(cfg.Employees.Create)...)
	employees.Patch("/", guarded(cfg.Employees.UpdateMany)...)
	employees.Delete("/", guarded(cfg.Employees.DeleteMany)...)
	employees.Put("/:id", guarded(cfg.Employees.Update)...)
	employees.Delete("/:id", guarded(cfg.Employees.Delete)...)
}
