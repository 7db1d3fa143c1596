package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/domain"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/validation"
)

// ErrNotFound is returned when an identity does not resolve to a record.
var ErrNotFound = store.ErrNotFound

// record is the constraint satisfied by *domain.Department and *domain.Employee.
type record interface {
	Validate() error
	Values() map[string]any
	ToDocument() map[string]any
	Metadata() *domain.Meta
}

// records implements the operations shared by every record kind over a single
// collection.
type records[T record] struct {
	coll   store.Collection
	rules  validation.RuleSet
	decode func(map[string]any) T
	now    func() time.Time
	logger *zap.Logger
}

func (r *records[T]) create(ctx context.Context, rec T) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m := rec.Metadata()
	if !m.IsNew() {
		return fmt.Errorf("%s %s already persisted", r.rules.Name, m.ID)
	}

	before := *m
	m.Touch(r.now())
	stored, err := r.coll.Insert(ctx, rec.ToDocument())
	if err != nil {
		*m = before
		return err
	}
	m.ID = stored.ID()
	m.MarkLoaded(rec.Values())
	r.logger.Debug("record created", zap.String("collection", r.coll.Name()), zap.String("id", m.ID))
	return nil
}

// save persists an existing record, writing only the fields that differ from
// the state it was loaded with.
func (r *records[T]) save(ctx context.Context, rec T) error {
	m := rec.Metadata()
	if m.IsNew() {
		return r.create(ctx, rec)
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	base := m.Loaded()
	if base == nil {
		current, found, err := r.coll.FindOne(ctx, store.ByID(m.ID))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s %s: %w", r.rules.Name, m.ID, ErrNotFound)
		}
		base = current
	}

	values := rec.Values()
	patch := store.Patch{}
	for field, value := range values {
		if !reflect.DeepEqual(base[field], value) {
			patch[field] = value
		}
	}
	if len(patch) == 0 {
		_, found, err := r.coll.FindOne(ctx, store.ByID(m.ID))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s %s: %w", r.rules.Name, m.ID, ErrNotFound)
		}
		return nil
	}

	now := r.now().UTC()
	patch[domain.FieldUpdatedAt] = domain.FormatTime(now)
	n, err := r.coll.UpdateOne(ctx, store.ByID(m.ID), patch)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", r.rules.Name, m.ID, ErrNotFound)
	}
	m.UpdatedAt = now
	m.MarkLoaded(values)
	return nil
}

func (r *records[T]) remove(ctx context.Context, rec T) error {
	if rec.Metadata().IsNew() {
		return fmt.Errorf("%s not persisted: %w", r.rules.Name, ErrNotFound)
	}
	n, err := r.coll.DeleteOne(ctx, store.ByID(rec.Metadata().ID))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", r.rules.Name, rec.Metadata().ID, ErrNotFound)
	}
	return nil
}

func (r *records[T]) getByID(ctx context.Context, id string) (T, error) {
	rec, found, err := r.findOne(ctx, store.ByID(id))
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, fmt.Errorf("%s %s: %w", r.rules.Name, id, ErrNotFound)
	}
	return rec, nil
}

func (r *records[T]) findOne(ctx context.Context, filter store.Filter) (T, bool, error) {
	var zero T
	doc, found, err := r.coll.FindOne(ctx, filter)
	if err != nil || !found {
		return zero, found, err
	}
	return r.load(doc), true, nil
}

func (r *records[T]) load(doc store.Document) T {
	rec := r.decode(doc)
	rec.Metadata().MarkLoaded(rec.Values())
	return rec
}

func (r *records[T]) find(ctx context.Context, filter store.Filter) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for doc, err := range r.coll.Find(ctx, filter) {
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(r.load(doc), nil) {
				return
			}
		}
	}
}

func (r *records[T]) list(ctx context.Context, filter store.Filter) ([]T, error) {
	var out []T
	for rec, err := range r.find(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *records[T]) updateOne(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	stamped, err := r.stamp(patch)
	if err != nil {
		return 0, err
	}
	return r.coll.UpdateOne(ctx, filter, stamped)
}

func (r *records[T]) updateMany(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	stamped, err := r.stamp(patch)
	if err != nil {
		return 0, err
	}
	n, err := r.coll.UpdateMany(ctx, filter, stamped)
	if err != nil {
		return 0, err
	}
	r.logger.Debug("records updated", zap.String("collection", r.coll.Name()), zap.Int64("count", n))
	return n, nil
}

func (r *records[T]) deleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	return r.coll.DeleteOne(ctx, filter)
}

func (r *records[T]) deleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	n, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	r.logger.Debug("records deleted", zap.String("collection", r.coll.Name()), zap.Int64("count", n))
	return n, nil
}

// stamp validates a caller patch and adds the update timestamp.
func (r *records[T]) stamp(patch store.Patch) (store.Patch, error) {
	if len(patch) == 0 {
		return nil, store.ErrInvalidPatch
	}
	if err := r.rules.ValidatePatch(patch).Err(); err != nil {
		return nil, err
	}
	out := store.Patch{}
	for k, v := range patch {
		out[k] = v
	}
	out[domain.FieldUpdatedAt] = domain.FormatTime(r.now())
	return out, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
