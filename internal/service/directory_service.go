package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/cache"
	"github.com/spec-kit/company-directory/internal/domain"
	"github.com/spec-kit/company-directory/internal/events"
	"github.com/spec-kit/company-directory/internal/repository"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/validation"
	apperrors "github.com/spec-kit/company-directory/pkg/util"
)

// DirectoryService exposes department and employee use cases.
type DirectoryService struct {
	departments *repository.DepartmentRepository
	employees   *repository.EmployeeRepository
	cache       *cache.DepartmentCache
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// DirectoryDependencies bundles what the directory service needs.
type DirectoryDependencies struct {
	Departments *repository.DepartmentRepository
	Employees   *repository.EmployeeRepository
	// Cache may be nil.
	Cache      *cache.DepartmentCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Cache
	if c == nil {
		c = cache.NewDepartmentCache(nil, deps.Departments, 0, logger)
	}
	return &DirectoryService{
		departments: deps.Departments,
		employees:   deps.Employees,
		cache:       c,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// CreateDepartment validates fields and persists a new department.
func (s *DirectoryService) CreateDepartment(ctx context.Context, fields map[string]any) (*domain.Department, error) {
	dept, err := domain.NewDepartment(fields)
	if err != nil {
		return nil, mapError("department", "", err)
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, mapError("department", "", err)
	}
	s.publish(ctx, events.EventDepartmentCreated, repository.DepartmentsCollection, dept.ID, events.RecordPayload{Fields: dept.Values()})
	return dept, nil
}

// GetDepartment loads a department by id.
func (s *DirectoryService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, mapError("department", id, err)
	}
	return dept, nil
}

// ListDepartments returns departments matching filter in insertion order.
func (s *DirectoryService) ListDepartments(ctx context.Context, filter store.Filter) ([]*domain.Department, error) {
	depts, err := s.departments.List(ctx, filter)
	if err != nil {
		return nil, mapError("department", "", err)
	}
	return depts, nil
}

// UpdateDepartment sets fields on one department and saves the changes.
func (s *DirectoryService) UpdateDepartment(ctx context.Context, id string, fields map[string]any) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, mapError("department", id, err)
	}
	if err := dept.Set(fields); err != nil {
		return nil, mapError("department", id, err)
	}
	if err := s.departments.Save(ctx, dept); err != nil {
		return nil, mapError("department", id, err)
	}
	s.cache.Invalidate(ctx, id)
	s.publish(ctx, events.EventDepartmentUpdated, repository.DepartmentsCollection, id, events.RecordPayload{Fields: dept.Values()})
	return dept, nil
}

// UpdateDepartments applies patch to every department matching filter.
func (s *DirectoryService) UpdateDepartments(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	n, err := s.departments.UpdateMany(ctx, filter, patch)
	if err != nil {
		return 0, mapError("department", "", err)
	}
	s.cache.InvalidateAll(ctx)
	s.publish(ctx, events.EventDepartmentUpdated, repository.DepartmentsCollection, "", events.BulkPayload{Filter: filter, Patch: patch, Count: n})
	return n, nil
}

// DeleteDepartment removes one department. Employees referencing it are kept.
func (s *DirectoryService) DeleteDepartment(ctx context.Context, id string) error {
	n, err := s.departments.DeleteOne(ctx, store.ByID(id))
	if err != nil {
		return mapError("department", id, err)
	}
	if n == 0 {
		return mapError("department", id, repository.ErrNotFound)
	}
	s.cache.Invalidate(ctx, id)
	s.publish(ctx, events.EventDepartmentDeleted, repository.DepartmentsCollection, id, nil)
	return nil
}

// DeleteDepartments removes every department matching filter.
func (s *DirectoryService) DeleteDepartments(ctx context.Context, filter store.Filter) (int64, error) {
	n, err := s.departments.DeleteMany(ctx, filter)
	if err != nil {
		return 0, mapError("department", "", err)
	}
	s.cache.InvalidateAll(ctx)
	s.publish(ctx, events.EventDepartmentDeleted, repository.DepartmentsCollection, "", events.BulkPayload{Filter: filter, Count: n})
	return n, nil
}

// CreateEmployee validates fields and persists a new employee.
func (s *DirectoryService) CreateEmployee(ctx context.Context, fields map[string]any) (*domain.Employee, error) {
	emp, err := domain.NewEmployee(fields)
	if err != nil {
		return nil, mapError("employee", "", err)
	}
	if err := s.employees.Create(ctx, emp); err != nil {
		return nil, mapError("employee", "", err)
	}
	s.publish(ctx, events.EventEmployeeCreated, repository.EmployeesCollection, emp.ID, events.RecordPayload{Fields: emp.Values()})
	return emp, nil
}

// GetEmployee loads an employee by id.
func (s *DirectoryService) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	emp, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, mapError("employee", id, err)
	}
	return emp, nil
}

// GetEmployeePopulated loads an employee with its department resolved.
func (s *DirectoryService) GetEmployeePopulated(ctx context.Context, id string) (*domain.EmployeeWithDepartment, error) {
	emp, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, mapError("employee", id, err)
	}
	populated, err := s.employees.Populate(ctx, emp)
	if err != nil {
		return nil, mapError("employee", id, err)
	}
	return populated, nil
}

// ListEmployees returns employees matching filter in insertion order.
func (s *DirectoryService) ListEmployees(ctx context.Context, filter store.Filter) ([]*domain.Employee, error) {
	emps, err := s.employees.List(ctx, filter)
	if err != nil {
		return nil, mapError("employee", "", err)
	}
	return emps, nil
}

// ListEmployeesPopulated returns matching employees with departments resolved.
// A single dangling reference fails the whole listing.
func (s *DirectoryService) ListEmployeesPopulated(ctx context.Context, filter store.Filter) ([]*domain.EmployeeWithDepartment, error) {
	emps, err := s.employees.ListPopulated(ctx, filter)
	if err != nil {
		return nil, mapError("employee", "", err)
	}
	return emps, nil
}

// UpdateEmployee sets fields on one employee and saves the changes.
func (s *DirectoryService) UpdateEmployee(ctx context.Context, id string, fields map[string]any) (*domain.Employee, error) {
	emp, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, mapError("employee", id, err)
	}
	if err := emp.Set(fields); err != nil {
		return nil, mapError("employee", id, err)
	}
	if err := s.employees.Save(ctx, emp); err != nil {
		return nil, mapError("employee", id, err)
	}
	s.publish(ctx, events.EventEmployeeUpdated, repository.EmployeesCollection, id, events.RecordPayload{Fields: emp.Values()})
	return emp, nil
}

// UpdateEmployees applies patch to every employee matching filter.
func (s *DirectoryService) UpdateEmployees(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	n, err := s.employees.UpdateMany(ctx, filter, patch)
	if err != nil {
		return 0, mapError("employee", "", err)
	}
	s.publish(ctx, events.EventEmployeeUpdated, repository.EmployeesCollection, "", events.BulkPayload{Filter: filter, Patch: patch, Count: n})
	return n, nil
}

// DeleteEmployee removes one employee.
func (s *DirectoryService) DeleteEmployee(ctx context.Context, id string) error {
	n, err := s.employees.DeleteOne(ctx, store.ByID(id))
	if err != nil {
		return mapError("employee", id, err)
	}
	if n == 0 {
		return mapError("employee", id, repository.ErrNotFound)
	}
	s.publish(ctx, events.EventEmployeeDeleted, repository.EmployeesCollection, id, nil)
	return nil
}

// DeleteEmployees removes every employee matching filter.
func (s *DirectoryService) DeleteEmployees(ctx context.Context, filter store.Filter) (int64, error) {
	n, err := s.employees.DeleteMany(ctx, filter)
	if err != nil {
		return 0, mapError("employee", "", err)
	}
	s.publish(ctx, events.EventEmployeeDeleted, repository.EmployeesCollection, "", events.BulkPayload{Filter: filter, Count: n})
	return n, nil
}

func (s *DirectoryService) publish(ctx context.Context, eventType events.EventType, collection, id string, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, collection, id, payload)
	event.Subject = events.SubjectFromContext(ctx)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func mapError(resource, id string, err error) error {
	var (
		verr     *validation.Error
		dangling *domain.DanglingReferenceError
	)
	switch {
	case errors.As(err, &verr):
		return apperrors.NewValidationError(resource+" validation failed", validationDetails(verr))
	case errors.As(err, &dangling):
		return apperrors.NewDanglingReference(dangling.Field, dangling.ID)
	case errors.Is(err, store.ErrInvalidPatch):
		return apperrors.NewValidationError("patch must set at least one field", nil)
	case errors.Is(err, repository.ErrNotFound):
		details := map[string]any{}
		if id != "" {
			details["id"] = id
		}
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, store.ErrDuplicateID):
		return apperrors.NewConflict(resource+" already exists", nil)
	default:
		return apperrors.MapError(err)
	}
}

func validationDetails(verr *validation.Error) map[string]any {
	details := make(map[string]any, len(verr.Fields))
	for field, fe := range verr.Fields {
		d := map[string]any{"kind": string(fe.Kind), "message": fe.Error()}
		if fe.Expected != "" {
			d["expected"] = fe.Expected
		}
		if fe.Kind == validation.KindLengthOutOfRange {
			d["min"] = fe.Min
			d["max"] = fe.Max
		}
		details[field] = d
	}
	return details
}
