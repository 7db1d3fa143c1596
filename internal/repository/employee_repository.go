package repository

import (
	"context"
	"errors"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/domain"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/validation"
)

// EmployeesCollection is the collection employees are stored in.
const EmployeesCollection = "employees"

// DepartmentReader resolves department references. Both DepartmentRepository
// and the Redis department cache satisfy it.
type DepartmentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Department, error)
}

// EmployeeRepository manages employee persistence and department population.
type EmployeeRepository struct {
	records     records[*domain.Employee]
	departments DepartmentReader
}

// NewEmployeeRepository builds the repository. departments resolves references
// for Populate.
func NewEmployeeRepository(db store.Database, departments DepartmentReader, logger *zap.Logger) *EmployeeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeRepository{
		records: records[*domain.Employee]{
			coll:   db.Collection(EmployeesCollection),
			rules:  validation.Employee,
			decode: domain.EmployeeFromDocument,
			now:    time.Now,
			logger: logger,
		},
		departments: departments,
	}
}

// Create validates and inserts emp. The department reference is not checked.
func (r *EmployeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	return r.records.create(ctx, emp)
}

// Save inserts a new employee or writes the changed fields of a persisted one.
func (r *EmployeeRepository) Save(ctx context.Context, emp *domain.Employee) error {
	return r.records.save(ctx, emp)
}

// Remove deletes a persisted employee.
func (r *EmployeeRepository) Remove(ctx context.Context, emp *domain.Employee) error {
	return r.records.remove(ctx, emp)
}

// GetByID loads an employee or returns ErrNotFound.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return r.records.getByID(ctx, id)
}

// FindOne returns the first match; found is false when nothing matches.
func (r *EmployeeRepository) FindOne(ctx context.Context, filter store.Filter) (*domain.Employee, bool, error) {
	return r.records.findOne(ctx, filter)
}

// Find streams matching employees in insertion order.
func (r *EmployeeRepository) Find(ctx context.Context, filter store.Filter) iter.Seq2[*domain.Employee, error] {
	return r.records.find(ctx, filter)
}

// List collects every match.
func (r *EmployeeRepository) List(ctx context.Context, filter store.Filter) ([]*domain.Employee, error) {
	return r.records.list(ctx, filter)
}

func (r *EmployeeRepository) UpdateOne(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return r.records.updateOne(ctx, filter, patch)
}

func (r *EmployeeRepository) UpdateMany(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return r.records.updateMany(ctx, filter, patch)
}

func (r *EmployeeRepository) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	return r.records.deleteOne(ctx, filter)
}

func (r *EmployeeRepository) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	return r.records.deleteMany(ctx, filter)
}

// Populate resolves the department reference of emp. A reference to a
// department that no longer exists yields a *domain.DanglingReferenceError.
func (r *EmployeeRepository) Populate(ctx context.Context, emp *domain.Employee) (*domain.EmployeeWithDepartment, error) {
	dept, err := r.departments.GetByID(ctx, emp.Department)
	if errors.Is(err, ErrNotFound) {
		return nil, &domain.DanglingReferenceError{Field: domain.FieldDepartment, ID: emp.Department}
	}
	if err != nil {
		return nil, err
	}
	populated, err := domain.Populate(*emp, *dept)
	if err != nil {
		return nil, err
	}
	return &populated, nil
}

// FindOnePopulated is FindOne followed by Populate.
func (r *EmployeeRepository) FindOnePopulated(ctx context.Context, filter store.Filter) (*domain.EmployeeWithDepartment, bool, error) {
	emp, found, err := r.FindOne(ctx, filter)
	if err != nil || !found {
		return nil, found, err
	}
	populated, err := r.Populate(ctx, emp)
	if err != nil {
		return nil, true, err
	}
	return populated, true, nil
}

// ListPopulated collects every match with its department resolved.
func (r *EmployeeRepository) ListPopulated(ctx context.Context, filter store.Filter) ([]*domain.EmployeeWithDepartment, error) {
	var out []*domain.EmployeeWithDepartment
	for emp, err := range r.Find(ctx, filter) {
		if err != nil {
			return nil, err
		}
		populated, err := r.Populate(ctx, emp)
		if err != nil {
			return nil, err
		}
		out = append(out, populated)
	}
	return out, nil
}
