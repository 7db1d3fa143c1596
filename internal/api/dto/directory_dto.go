package dto

import (
	"time"

	"github.com/spec-kit/company-directory/internal/domain"
)

// DepartmentResponse is the wire form of a department.
type DepartmentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EmployeeResponse is the wire form of an employee with its department
// reference.
type EmployeeResponse struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PopulatedEmployeeResponse embeds the referenced department.
type PopulatedEmployeeResponse struct {
	ID         string             `json:"id"`
	FirstName  string             `json:"firstName"`
	LastName   string             `json:"lastName"`
	Department DepartmentResponse `json:"department"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// BulkResult reports how many records a predicate write touched.
type BulkResult struct {
	Count int64 `json:"count"`
}

// Department converts a domain department.
func Department(d *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// Departments converts a list, never returning nil.
func Departments(list []*domain.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, Department(d))
	}
	return out
}

// Employee converts a domain employee.
func Employee(e *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Department: e.Department,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// Employees converts a list, never returning nil.
func Employees(list []*domain.Employee) []EmployeeResponse {
	out := make([]EmployeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, Employee(e))
	}
	return out
}

// PopulatedEmployee converts a resolved employee.
func PopulatedEmployee(e *domain.EmployeeWithDepartment) PopulatedEmployeeResponse {
	return PopulatedEmployeeResponse{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Department: Department(&e.Department),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// PopulatedEmployees converts a list, never returning nil.
func PopulatedEmployees(list []*domain.EmployeeWithDepartment) []PopulatedEmployeeResponse {
	out := make([]PopulatedEmployeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, PopulatedEmployee(e))
	}
	return out
}
