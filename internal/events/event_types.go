package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDepartmentCreated EventType = "department_created"
	EventDepartmentUpdated EventType = "department_updated"
	EventDepartmentDeleted EventType = "department_deleted"
	EventEmployeeCreated   EventType = "employee_created"
	EventEmployeeUpdated   EventType = "employee_updated"
	EventEmployeeDeleted   EventType = "employee_deleted"
)

// AllTypes lists every event type in a stable order.
var AllTypes = []EventType{
	EventDepartmentCreated,
	EventDepartmentUpdated,
	EventDepartmentDeleted,
	EventEmployeeCreated,
	EventEmployeeUpdated,
	EventEmployeeDeleted,
}

// Event represents a record change emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Collection string    `json:"collection"`
	// RecordID is empty for bulk changes.
	RecordID  string    `json:"record_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps a new event with an id and the current time.
func NewEvent(eventType EventType, collection, recordID string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Collection: collection,
		RecordID:   recordID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// RecordPayload carries the field values of a single created or updated record.
type RecordPayload struct {
	Fields map[string]any `json:"fields"`
}

// BulkPayload describes a predicate-based update or delete.
type BulkPayload struct {
	Filter map[string]any `json:"filter"`
	Patch  map[string]any `json:"patch,omitempty"`
	Count  int64          `json:"count"`
}
