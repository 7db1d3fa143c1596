package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/company-directory/internal/cache"
	"github.com/spec-kit/company-directory/internal/events"
	"github.com/spec-kit/company-directory/internal/repository"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/store/memory"
	apperrors "github.com/spec-kit/company-directory/pkg/util"
)

type fixture struct {
	svc   *DirectoryService
	audit *AuditService
	logs  *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := memory.New()
	t.Cleanup(func() { _ = db.Close(context.Background()) })

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher()
	audit := NewAuditService(dispatcher, logger)
	audit.RegisterHandlers()

	depts := repository.NewDepartmentRepository(db, logger)
	svc := NewDirectoryService(DirectoryDependencies{
		Departments: depts,
		Employees:   repository.NewEmployeeRepository(db, depts, logger),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	return fixture{svc: svc, audit: audit, logs: logs}
}

func requireDomainError(t *testing.T, err error, code string, status int) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %v", err)
	assert.Equal(t, code, de.Code)
	assert.Equal(t, status, de.HTTPStatus)
	return de
}

func TestCreateDepartmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDepartment(ctx, map[string]any{"name": []any{}})
	de := requireDomainError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
	require.Contains(t, de.Details, "name")
	assert.Equal(t, "TypeMismatch", de.Details["name"].(map[string]any)["kind"])

	_, err = f.svc.CreateDepartment(ctx, map[string]any{"name": "abc"})
	de = requireDomainError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
	nameErr := de.Details["name"].(map[string]any)
	assert.Equal(t, "LengthOutOfRange", nameErr["kind"])
	assert.Equal(t, 5, nameErr["min"])
	assert.Equal(t, 20, nameErr["max"])

	assert.Zero(t, f.audit.Count(events.EventDepartmentCreated))
}

func TestDepartmentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := events.WithSubject(context.Background(), "ops")

	dept, err := f.svc.CreateDepartment(ctx, map[string]any{"name": "Management"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.audit.Count(events.EventDepartmentCreated))

	entries := f.logs.FilterMessage("record changed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ops", entries[0].ContextMap()["subject"])
	assert.Equal(t, dept.ID, entries[0].ContextMap()["record_id"])

	updated, err := f.svc.UpdateDepartment(ctx, dept.ID, map[string]any{"name": "IT Dep."})
	require.NoError(t, err)
	assert.Equal(t, "IT Dep.", updated.Name)
	assert.Equal(t, dept.ID, updated.ID)

	_, err = f.svc.UpdateDepartment(ctx, dept.ID, map[string]any{"budget": "1"})
	requireDomainError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	got, err := f.svc.GetDepartment(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, "IT Dep.", got.Name)

	require.NoError(t, f.svc.DeleteDepartment(ctx, dept.ID))
	assert.Equal(t, 1, f.audit.Count(events.EventDepartmentDeleted))

	err = f.svc.DeleteDepartment(ctx, dept.ID)
	de := requireDomainError(t, err, apperrors.CodeNotFound, http.StatusNotFound)
	assert.Equal(t, dept.ID, de.Details["id"])

	_, err = f.svc.GetDepartment(ctx, dept.ID)
	requireDomainError(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	_, err = f.svc.UpdateDepartment(ctx, dept.ID, map[string]any{"name": "Operations"})
	requireDomainError(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestBulkOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, e := range []map[string]any{
		{"firstName": "John", "lastName": "Doe", "department": "155463"},
		{"firstName": "Amanda", "lastName": "Amber", "department": "344567"},
	} {
		_, err := f.svc.CreateEmployee(ctx, e)
		require.NoError(t, err)
	}

	n, err := f.svc.UpdateEmployees(ctx, store.Filter{}, store.Patch{"firstName": "Updated!"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	emps, err := f.svc.ListEmployees(ctx, store.Filter{"firstName": "Updated!"})
	require.NoError(t, err)
	assert.Len(t, emps, 2)

	_, err = f.svc.UpdateEmployees(ctx, store.Filter{}, store.Patch{})
	requireDomainError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	n, err = f.svc.DeleteEmployees(ctx, store.Filter{"lastName": "Doe"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.svc.DeleteEmployees(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	emps, err = f.svc.ListEmployees(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, emps)

	assert.Equal(t, 1, f.audit.Count(events.EventEmployeeUpdated))
	assert.Equal(t, 2, f.audit.Count(events.EventEmployeeDeleted))
}

func TestPopulatedReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dept, err := f.svc.CreateDepartment(ctx, map[string]any{"name": "Department #1"})
	require.NoError(t, err)
	emp, err := f.svc.CreateEmployee(ctx, map[string]any{"firstName": "John", "lastName": "Doe", "department": dept.ID})
	require.NoError(t, err)

	populated, err := f.svc.GetEmployeePopulated(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Department #1", populated.Department.Name)
	assert.Equal(t, dept.ID, populated.Department.ID)

	all, err := f.svc.ListEmployeesPopulated(ctx, store.Filter{"firstName": "John"})
	require.NoError(t, err)
	require.Len(t, all, 1)

	n, err := f.svc.DeleteDepartments(ctx, store.Filter{"name": "Department #1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.svc.GetEmployeePopulated(ctx, emp.ID)
	de := requireDomainError(t, err, apperrors.CodeDanglingReference, http.StatusConflict)
	assert.Equal(t, dept.ID, de.Details["id"])

	_, err = f.svc.ListEmployeesPopulated(ctx, store.Filter{})
	requireDomainError(t, err, apperrors.CodeDanglingReference, http.StatusConflict)

	unpopulated, err := f.svc.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, dept.ID, unpopulated.Department)
}

func TestUpdateEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	emp, err := f.svc.CreateEmployee(ctx, map[string]any{"firstName": "John", "lastName": "Doe", "department": "155463"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateEmployee(ctx, emp.ID, map[string]any{"firstName": "Jake"})
	require.NoError(t, err)
	assert.Equal(t, "Jake", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName)

	_, err = f.svc.UpdateEmployee(ctx, emp.ID, map[string]any{"department": map[string]any{"name": "x"}})
	requireDomainError(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	_, err = f.svc.UpdateEmployee(ctx, "missing", map[string]any{"firstName": "Jake"})
	requireDomainError(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	require.NoError(t, f.svc.DeleteEmployee(ctx, emp.ID))
	assert.Error(t, f.svc.DeleteEmployee(ctx, emp.ID))
}

type failingDispatcher struct{}

func (failingDispatcher) Publish(context.Context, events.Event) error {
	return errors.New("subscriber down")
}

func (failingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	db := memory.New()
	core, logs := observer.New(zapcore.WarnLevel)
	depts := repository.NewDepartmentRepository(db, nil)
	svc := NewDirectoryService(DirectoryDependencies{
		Departments: depts,
		Employees:   repository.NewEmployeeRepository(db, depts, nil),
		Dispatcher:  failingDispatcher{},
		Logger:      zap.New(core),
	})

	_, err := svc.CreateDepartment(context.Background(), map[string]any{"name": "Management"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}

func TestUpdateEventsCarryAppliedValues(t *testing.T) {
	db := memory.New()
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	for _, eventType := range []events.EventType{events.EventDepartmentUpdated, events.EventEmployeeUpdated} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			published = append(published, e)
			return nil
		})
	}
	depts := repository.NewDepartmentRepository(db, nil)
	svc := NewDirectoryService(DirectoryDependencies{
		Departments: depts,
		Employees:   repository.NewEmployeeRepository(db, depts, nil),
		Dispatcher:  dispatcher,
	})
	ctx := context.Background()

	dept, err := svc.CreateDepartment(ctx, map[string]any{"name": "Management"})
	require.NoError(t, err)
	_, err = svc.UpdateDepartment(ctx, dept.ID, map[string]any{"name": "IT Dep."})
	require.NoError(t, err)

	emp, err := svc.CreateEmployee(ctx, map[string]any{"firstName": "John", "lastName": "Doe", "department": dept.ID})
	require.NoError(t, err)
	_, err = svc.UpdateEmployee(ctx, emp.ID, map[string]any{"firstName": "John", "lastName": "Smith"})
	require.NoError(t, err)

	require.Len(t, published, 2)
	assert.Equal(t, events.RecordPayload{Fields: map[string]any{"name": "IT Dep."}}, published[0].Payload)
	assert.Equal(t, events.RecordPayload{Fields: map[string]any{
		"firstName":  "John",
		"lastName":   "Smith",
		"department": dept.ID,
	}}, published[1].Payload)
}

func TestPopulateThroughCacheSeesDeletes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := memory.New()
	depts := repository.NewDepartmentRepository(db, nil)
	departmentCache := cache.NewDepartmentCache(client, depts, time.Minute, nil)
	svc := NewDirectoryService(DirectoryDependencies{
		Departments: depts,
		Employees:   repository.NewEmployeeRepository(db, departmentCache, nil),
		Cache:       departmentCache,
		Dispatcher:  events.NewInMemoryDispatcher(),
	})
	ctx := context.Background()

	dept, err := svc.CreateDepartment(ctx, map[string]any{"name": "Department #1"})
	require.NoError(t, err)
	emp, err := svc.CreateEmployee(ctx, map[string]any{"firstName": "John", "lastName": "Doe", "department": dept.ID})
	require.NoError(t, err)

	populated, err := svc.GetEmployeePopulated(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Department #1", populated.Department.Name)
	assert.True(t, mr.Exists(cache.EntryKey(dept.ID)))

	_, err = svc.UpdateDepartment(ctx, dept.ID, map[string]any{"name": "Operations"})
	require.NoError(t, err)
	populated, err = svc.GetEmployeePopulated(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Operations", populated.Department.Name)

	require.NoError(t, svc.DeleteDepartment(ctx, dept.ID))
	_, err = svc.GetEmployeePopulated(ctx, emp.ID)
	requireDomainError(t, err, apperrors.CodeDanglingReference, http.StatusConflict)
}
