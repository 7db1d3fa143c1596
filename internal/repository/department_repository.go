package repository

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/domain"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/validation"
)

// DepartmentsCollection is the collection departments are stored in.
const DepartmentsCollection = "departments"

// DepartmentRepository manages department persistence.
type DepartmentRepository struct {
	records records[*domain.Department]
}

// NewDepartmentRepository builds the repository over db.
func NewDepartmentRepository(db store.Database, logger *zap.Logger) *DepartmentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentRepository{records: records[*domain.Department]{
		coll:   db.Collection(DepartmentsCollection),
		rules:  validation.Department,
		decode: domain.DepartmentFromDocument,
		now:    time.Now,
		logger: logger,
	}}
}

// Create validates and inserts dept, filling in its identity and timestamps.
func (r *DepartmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	return r.records.create(ctx, dept)
}

// Save inserts a new department or writes the changed fields of a persisted one.
func (r *DepartmentRepository) Save(ctx context.Context, dept *domain.Department) error {
	return r.records.save(ctx, dept)
}

// Remove deletes a persisted department.
func (r *DepartmentRepository) Remove(ctx context.Context, dept *domain.Department) error {
	return r.records.remove(ctx, dept)
}

// GetByID loads a department or returns ErrNotFound.
func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	return r.records.getByID(ctx, id)
}

// FindOne returns the first match; found is false when nothing matches.
func (r *DepartmentRepository) FindOne(ctx context.Context, filter store.Filter) (*domain.Department, bool, error) {
	return r.records.findOne(ctx, filter)
}

// Find streams matching departments in insertion order.
func (r *DepartmentRepository) Find(ctx context.Context, filter store.Filter) iter.Seq2[*domain.Department, error] {
	return r.records.find(ctx, filter)
}

// List collects every match.
func (r *DepartmentRepository) List(ctx context.Context, filter store.Filter) ([]*domain.Department, error) {
	return r.records.list(ctx, filter)
}

func (r *DepartmentRepository) UpdateOne(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return r.records.updateOne(ctx, filter, patch)
}

func (r *DepartmentRepository) UpdateMany(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return r.records.updateMany(ctx, filter, patch)
}

func (r *DepartmentRepository) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	return r.records.deleteOne(ctx, filter)
}

func (r *DepartmentRepository) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	return r.records.deleteMany(ctx, filter)
}
