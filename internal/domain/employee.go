package domain

import (
	"github.com/spec-kit/company-directory/internal/validation"
)

// Employee field names.
const (
	FieldFirstName  = "firstName"
	FieldLastName   = "lastName"
	FieldDepartment = "department"
)

// Employee is a person assigned to exactly one department. Department holds
// the referenced department identity.
type Employee struct {
	Meta
	FirstName  string
	LastName   string
	Department string
}

// EmployeeWithDepartment is an employee whose department reference has been
// resolved.
type EmployeeWithDepartment struct {
	Meta
	FirstName  string
	LastName   string
	Department Department
}

// NewEmployee builds an unpersisted employee from raw input.
func NewEmployee(fields map[string]any) (*Employee, error) {
	if err := validation.ValidateEmployee(fields).Err(); err != nil {
		return nil, err
	}
	return &Employee{
		FirstName:  fields[FieldFirstName].(string),
		LastName:   fields[FieldLastName].(string),
		Department: fields[FieldDepartment].(string),
	}, nil
}

// Validate checks the current field values.
func (e *Employee) Validate() error {
	return validation.ValidateEmployee(e.Values()).Err()
}

// Set assigns the fields in patch after validating them.
func (e *Employee) Set(patch map[string]any) error {
	if err := validation.Employee.ValidatePatch(patch).Err(); err != nil {
		return err
	}
	for field, value := range patch {
		s := value.(string)
		switch field {
		case FieldFirstName:
			e.FirstName = s
		case FieldLastName:
			e.LastName = s
		case FieldDepartment:
			e.Department = s
		}
	}
	return nil
}

// Values returns the user-editable fields.
func (e *Employee) Values() map[string]any {
	return map[string]any{
		FieldFirstName:  e.FirstName,
		FieldLastName:   e.LastName,
		FieldDepartment: e.Department,
	}
}

// ToDocument returns the stored form of the employee.
func (e *Employee) ToDocument() map[string]any {
	doc := e.Values()
	e.Meta.fields(doc)
	return doc
}

// EmployeeFromDocument decodes a stored employee.
func EmployeeFromDocument(doc map[string]any) *Employee {
	return &Employee{
		Meta:       metaFromDocument(doc),
		FirstName:  stringField(doc, FieldFirstName),
		LastName:   stringField(doc, FieldLastName),
		Department: stringField(doc, FieldDepartment),
	}
}

// Populate embeds dept into a copy of emp. It fails when dept is not the
// department emp references. emp is left unchanged.
func Populate(emp Employee, dept Department) (EmployeeWithDepartment, error) {
	if dept.ID == "" || dept.ID != emp.Department {
		return EmployeeWithDepartment{}, &DanglingReferenceError{Field: FieldDepartment, ID: emp.Department}
	}
	return EmployeeWithDepartment{
		Meta:       emp.Meta,
		FirstName:  emp.FirstName,
		LastName:   emp.LastName,
		Department: dept,
	}, nil
}

// Unpopulated returns the reference form.
func (e EmployeeWithDepartment) Unpopulated() Employee {
	return Employee{
		Meta:       e.Meta,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Department: e.Department.ID,
	}
}
