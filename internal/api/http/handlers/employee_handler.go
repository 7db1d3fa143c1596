package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/company-directory/internal/api/dto"
	"github.com/spec-kit/company-directory/internal/domain"
	"github.com/spec-kit/company-directory/internal/service"
	"github.com/spec-kit/company-directory/internal/store"
	apperrors "github.com/spec-kit/company-directory/pkg/util"
)

// EmployeeHandler exposes employee endpoints.
type EmployeeHandler struct {
	service *service.DirectoryService
}

// NewEmployeeHandler constructs handler.
func NewEmployeeHandler(directory *service.DirectoryService) *EmployeeHandler {
	return &EmployeeHandler{service: directory}
}

// Create POST /employees.
func (h *EmployeeHandler) Create(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return err
	}
	emp, err := h.service.CreateEmployee(c.UserContext(), fields)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.Employee(emp)})
}

// List GET /employees[?populate=department].
func (h *EmployeeHandler) List(c *fiber.Ctx) error {
	populate, err := wantsDepartment(c)
	if err != nil {
		return err
	}
	filter := queryFilter(c)
	if populate {
		emps, err := h.service.ListEmployeesPopulated(c.UserContext(), filter)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.PopulatedEmployees(emps)})
	}
	emps, err := h.service.ListEmployees(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Employees(emps)})
}

// Get GET /employees/:id[?populate=department].
func (h *EmployeeHandler) Get(c *fiber.Ctx) error {
	populate, err := wantsDepartment(c)
	if err != nil {
		return err
	}
	if populate {
		emp, err := h.service.GetEmployeePopulated(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.PopulatedEmployee(emp)})
	}
	emp, err := h.service.GetEmployee(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Employee(emp)})
}

// Update PUT /employees/:id.
func (h *EmployeeHandler) Update(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return err
	}
	emp, err := h.service.UpdateEmployee(c.UserContext(), c.Params("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Employee(emp)})
}

// Delete DELETE /employees/:id.
func (h *EmployeeHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteEmployee(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateMany PATCH /employees.
func (h *EmployeeHandler) UpdateMany(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return err
	}
	n, err := h.service.UpdateEmployees(c.UserContext(), queryFilter(c), store.Patch(fields))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkResult{Count: n}})
}

// DeleteMany DELETE /employees.
func (h *EmployeeHandler) DeleteMany(c *fiber.Ctx) error {
	n, err := h.service.DeleteEmployees(c.UserContext(), queryFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkResult{Count: n}})
}

func wantsDepartment(c *fiber.Ctx) (bool, error) {
	switch c.Query(populateParam) {
	case "":
		return false, nil
	case domain.FieldDepartment:
		return true, nil
	default:
		return false, apperrors.NewValidationError("unsupported populate field",
			map[string]any{populateParam: c.Query(populateParam)})
	}
}
