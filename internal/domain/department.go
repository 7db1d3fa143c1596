package domain

import (
	"github.com/spec-kit/company-directory/internal/validation"
)

// FieldName is the department name field.
const FieldName = "name"

// Department represents an organizational unit employees belong to.
type Department struct {
	Meta
	Name string
}

// NewDepartment builds an unpersisted department from raw input. Fields other
// than name are ignored.
func NewDepartment(fields map[string]any) (*Department, error) {
	if err := validation.ValidateDepartment(fields).Err(); err != nil {
		return nil, err
	}
	return &Department{Name: fields[FieldName].(string)}, nil
}

// Validate checks the current field values.
func (d *Department) Validate() error {
	return validation.ValidateDepartment(d.Values()).Err()
}

// Set assigns the fields in patch after validating them.
func (d *Department) Set(patch map[string]any) error {
	if err := validation.Department.ValidatePatch(patch).Err(); err != nil {
		return err
	}
	if name, ok := patch[FieldName]; ok {
		d.Name = name.(string)
	}
	return nil
}

// Values returns the user-editable fields.
func (d *Department) Values() map[string]any {
	return map[string]any{FieldName: d.Name}
}

// ToDocument returns the stored form of the department.
func (d *Department) ToDocument() map[string]any {
	doc := d.Values()
	d.Meta.fields(doc)
	return doc
}

// DepartmentFromDocument decodes a stored department.
func DepartmentFromDocument(doc map[string]any) *Department {
	return &Department{
		Meta: metaFromDocument(doc),
		Name: stringField(doc, FieldName),
	}
}
