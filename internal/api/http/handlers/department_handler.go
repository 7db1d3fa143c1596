package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/company-directory/internal/api/dto"
	"github.com/spec-kit/company-directory/internal/service"
	"github.com/spec-kit/company-directory/internal/store"
)

// DepartmentHandler exposes department endpoints.
type DepartmentHandler struct {
	service *service.DirectoryService
}

// NewDepartmentHandler constructs handler.
func NewDepartmentHandler(directory *service.DirectoryService) *DepartmentHandler {
	return &DepartmentHandler{service: directory}
}

// Create POST /departments.
func (h *DepartmentHandler) Create(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return err
	}
	dept, err := h.service.CreateDepartment(c.UserContext(), fields)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.Department(dept)})
}

// List GET /departments.
func (h *DepartmentHandler) List(c *fiber.Ctx) error {
	depts, err := h.service.ListDepartments(c.UserContext(), queryFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Departments(depts)})
}

// Get GET /departments/:id.
func (h *DepartmentHandler) Get(c *fiber.Ctx) error {
	dept, err := h.service.GetDepartment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Department(dept)})
}

// Update PUT /departments/:id.
func (h *DepartmentHandler) Update(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return err
	}
	dept, err := h.service.UpdateDepartment(c.UserContext(), c.Params("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Department(dept)})
}

// Delete DELETE /departments/:id.
func (h *DepartmentHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteDepartment(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateMany PATCH /departments sets the body fields on every department
// matching the query predicate.
func (h *DepartmentHandler) UpdateMany(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return err
	}
	n, err := h.service.UpdateDepartments(c.UserContext(), queryFilter(c), store.Patch(fields))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkResult{Count: n}})
}

// DeleteMany DELETE /departments removes every department matching the query
// predicate.
func (h *DepartmentHandler) DeleteMany(c *fiber.Ctx) error {
	n, err := h.service.DeleteDepartments(c.UserContext(), queryFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkResult{Count: n}})
}
