package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	var seen []string
	d.Subscribe(EventDepartmentCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.RecordID)
		return boom
	})
	d.Subscribe(EventDepartmentCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.RecordID)
		return nil
	})
	d.Subscribe(EventEmployeeCreated, func(context.Context, Event) error {
		seen = append(seen, "employee")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventDepartmentCreated, "departments", "d1", nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:d1", "second:d1"}, seen)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventEmployeeDeleted, "employees", "", BulkPayload{Count: 2})))
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventEmployeeUpdated, "employees", "e1", RecordPayload{Fields: map[string]any{"firstName": "Jake"}})
	require.NotEmpty(t, e.ID)
	assert.Equal(t, "employees", e.Collection)
	assert.False(t, e.Timestamp.IsZero())
	assert.Len(t, AllTypes, 6)
}

func TestSubjectContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, SubjectFromContext(ctx))
	assert.Equal(t, "ops", SubjectFromContext(WithSubject(ctx, "ops")))
}
