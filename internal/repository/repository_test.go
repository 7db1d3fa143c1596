package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/domain"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/store/memory"
	"github.com/spec-kit/company-directory/internal/validation"
)

func newRepos(t *testing.T) (*DepartmentRepository, *EmployeeRepository) {
	t.Helper()
	db := memory.New()
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	depts := NewDepartmentRepository(db, zap.NewNop())
	return depts, NewEmployeeRepository(db, depts, nil)
}

func mustEmployee(t *testing.T, first, last, dept string) *domain.Employee {
	t.Helper()
	emp, err := domain.NewEmployee(map[string]any{"firstName": first, "lastName": last, "department": dept})
	require.NoError(t, err)
	return emp
}

func TestCreateAndFindOne(t *testing.T) {
	ctx := context.Background()
	_, employees := newRepos(t)

	emp := mustEmployee(t, "John", "Doe", "155463")
	require.True(t, emp.IsNew())
	require.NoError(t, employees.Create(ctx, emp))
	assert.False(t, emp.IsNew())
	assert.False(t, emp.CreatedAt.IsZero())

	got, found, err := employees.FindOne(ctx, store.Filter{"firstName": "John"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, emp.ID, got.ID)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "155463", got.Department)
	assert.True(t, emp.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateRejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	depts, employees := newRepos(t)

	err := depts.Create(ctx, &domain.Department{Name: "abc"})
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validation.KindLengthOutOfRange, verr.Fields["name"].Kind)

	err = employees.Create(ctx, &domain.Employee{FirstName: "John"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"department", "lastName"}, verr.Fields.Fields())

	all, err := employees.List(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateTwiceFails(t *testing.T) {
	ctx := context.Background()
	depts, _ := newRepos(t)

	dept := &domain.Department{Name: "Management"}
	require.NoError(t, depts.Create(ctx, dept))
	assert.Error(t, depts.Create(ctx, dept))
}

func TestUpdateOne(t *testing.T) {
	ctx := context.Background()
	_, employees := newRepos(t)
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "John", "Doe", "155463")))

	n, err := employees.UpdateOne(ctx, store.Filter{"firstName": "John"}, store.Patch{"firstName": "Jake"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, found, err := employees.FindOne(ctx, store.Filter{"firstName": "Jake"})
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = employees.FindOne(ctx, store.Filter{"firstName": "John"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	ctx := context.Background()
	depts, employees := newRepos(t)
	require.NoError(t, depts.Create(ctx, &domain.Department{Name: "Management"}))

	_, err := depts.UpdateMany(ctx, store.Filter{}, store.Patch{"name": "abc"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	_, err = employees.UpdateOne(ctx, store.Filter{}, store.Patch{"id": "x"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	_, err = employees.UpdateOne(ctx, store.Filter{}, store.Patch{})
	assert.ErrorIs(t, err, store.ErrInvalidPatch)

	got, found, err := depts.FindOne(ctx, store.Filter{})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Management", got.Name)
}

func TestUpdateMany(t *testing.T) {
	ctx := context.Background()
	_, employees := newRepos(t)
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "John", "Doe", "155463")))
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "Amanda", "Amber", "344567")))

	n, err := employees.UpdateMany(ctx, store.Filter{}, store.Patch{"firstName": "Updated!"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := employees.List(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, emp := range all {
		assert.Equal(t, "Updated!", emp.FirstName)
		assert.False(t, emp.UpdatedAt.Before(emp.CreatedAt))
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	_, employees := newRepos(t)
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "John", "Doe", "155463")))
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "Amanda", "Amber", "344567")))

	n, err := employees.DeleteOne(ctx, store.Filter{"firstName": "John"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, found, err := employees.FindOne(ctx, store.Filter{"firstName": "John"})
	require.NoError(t, err)
	assert.False(t, found)

	n, err = employees.DeleteMany(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count := 0
	for _, err := range employees.Find(ctx, store.Filter{}) {
		require.NoError(t, err)
		count++
	}
	assert.Zero(t, count)
}

func TestFindIsRestartable(t *testing.T) {
	ctx := context.Background()
	depts, _ := newRepos(t)
	for _, name := range []string{"Management", "IT Dep.", "abcdefg"} {
		require.NoError(t, depts.Create(ctx, &domain.Department{Name: name}))
	}

	seq := depts.Find(ctx, store.Filter{})
	for range 2 {
		var names []string
		for dept, err := range seq {
			require.NoError(t, err)
			names = append(names, dept.Name)
		}
		assert.Equal(t, []string{"Management", "IT Dep.", "abcdefg"}, names)
	}
}

func TestSaveWritesChangedFields(t *testing.T) {
	ctx := context.Background()
	_, employees := newRepos(t)
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "John", "Doe", "155463")))

	a, err := employees.GetByID(ctx, mustFindID(t, employees, "John"))
	require.NoError(t, err)
	b, err := employees.GetByID(ctx, a.ID)
	require.NoError(t, err)

	a.FirstName = "Jake"
	require.NoError(t, employees.Save(ctx, a))
	b.LastName = "Smith"
	require.NoError(t, employees.Save(ctx, b))

	got, err := employees.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jake", got.FirstName)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, a.ID, got.ID)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSaveRejectsInvalidChange(t *testing.T) {
	ctx := context.Background()
	depts, _ := newRepos(t)
	dept := &domain.Department{Name: "Management"}
	require.NoError(t, depts.Create(ctx, dept))

	dept.Name = "abc"
	assert.ErrorIs(t, depts.Save(ctx, dept), validation.ErrValidation)

	got, err := depts.GetByID(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Management", got.Name)
}

func TestSaveNewRecordCreates(t *testing.T) {
	ctx := context.Background()
	depts, _ := newRepos(t)

	dept := &domain.Department{Name: "Management"}
	require.NoError(t, depts.Save(ctx, dept))
	assert.False(t, dept.IsNew())

	_, err := depts.GetByID(ctx, dept.ID)
	assert.NoError(t, err)
}

func TestRemoveIsTerminal(t *testing.T) {
	ctx := context.Background()
	depts, _ := newRepos(t)
	dept := &domain.Department{Name: "Management"}
	require.NoError(t, depts.Create(ctx, dept))

	require.NoError(t, depts.Remove(ctx, dept))
	assert.ErrorIs(t, depts.Remove(ctx, dept), ErrNotFound)

	_, err := depts.GetByID(ctx, dept.ID)
	assert.True(t, IsNotFound(err))

	dept.Name = "Operations"
	assert.ErrorIs(t, depts.Save(ctx, dept), ErrNotFound)

	assert.ErrorIs(t, depts.Remove(ctx, &domain.Department{Name: "Unsaved"}), ErrNotFound)
}

func TestPopulate(t *testing.T) {
	ctx := context.Background()
	depts, employees := newRepos(t)

	dept := &domain.Department{Name: "Department #1"}
	require.NoError(t, depts.Create(ctx, dept))
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "John", "Doe", dept.ID)))

	got, found, err := employees.FindOnePopulated(ctx, store.Filter{"firstName": "John"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Department #1", got.Department.Name)
	assert.Equal(t, dept.ID, got.Department.ID)

	stored, _, err := employees.FindOne(ctx, store.Filter{"firstName": "John"})
	require.NoError(t, err)
	assert.Equal(t, dept.ID, stored.Department)

	_, found, err = employees.FindOnePopulated(ctx, store.Filter{"firstName": "Nobody"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPopulateDanglingReference(t *testing.T) {
	ctx := context.Background()
	depts, employees := newRepos(t)

	dept := &domain.Department{Name: "Department #1"}
	require.NoError(t, depts.Create(ctx, dept))
	emp := mustEmployee(t, "John", "Doe", dept.ID)
	require.NoError(t, employees.Create(ctx, emp))
	require.NoError(t, depts.Remove(ctx, dept))

	_, err := employees.Populate(ctx, emp)
	assert.ErrorIs(t, err, domain.ErrDanglingReference)

	_, err = employees.ListPopulated(ctx, store.Filter{})
	assert.ErrorIs(t, err, domain.ErrDanglingReference)

	// no cascade
	_, err = employees.GetByID(ctx, emp.ID)
	assert.NoError(t, err)
}

func TestListPopulated(t *testing.T) {
	ctx := context.Background()
	depts, employees := newRepos(t)

	it := &domain.Department{Name: "IT Dep."}
	mgmt := &domain.Department{Name: "Management"}
	require.NoError(t, depts.Create(ctx, it))
	require.NoError(t, depts.Create(ctx, mgmt))
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "John", "Doe", it.ID)))
	require.NoError(t, employees.Create(ctx, mustEmployee(t, "Amanda", "Amber", mgmt.ID)))

	all, err := employees.ListPopulated(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "IT Dep.", all[0].Department.Name)
	assert.Equal(t, "Management", all[1].Department.Name)
}

func TestRecordsUseClock(t *testing.T) {
	ctx := context.Background()
	depts, _ := newRepos(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	depts.records.now = func() time.Time { return fixed }

	dept := &domain.Department{Name: "Management"}
	require.NoError(t, depts.Create(ctx, dept))

	got, err := depts.GetByID(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, fixed, got.CreatedAt)
	assert.Equal(t, fixed, got.UpdatedAt)
}

func mustFindID(t *testing.T, employees *EmployeeRepository, firstName string) string {
	t.Helper()
	emp, found, err := employees.FindOne(context.Background(), store.Filter{"firstName": firstName})
	require.NoError(t, err)
	require.True(t, found)
	return emp.ID
}
