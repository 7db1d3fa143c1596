package domain

import (
	"errors"
	"fmt"
	"time"
)

// Stored field names shared by every record kind.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// ErrDanglingReference is matched by *DanglingReferenceError.
var ErrDanglingReference = errors.New("dangling reference")

// DanglingReferenceError reports a reference whose target no longer exists.
type DanglingReferenceError struct {
	Field string
	ID    string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s references missing record %q", e.Field, e.ID)
}

func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}

// Meta carries the store-managed part of a record.
type Meta struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	loaded map[string]any
}

// IsNew reports whether the record has never been persisted.
func (m Meta) IsNew() bool {
	return m.ID == ""
}

// Touch stamps the record for a write at now. The creation time is only set
// once.
func (m *Meta) Touch(now time.Time) {
	now = now.UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

func (m Meta) fields(out map[string]any) {
	if m.ID != "" {
		out[FieldID] = m.ID
	}
	if !m.CreatedAt.IsZero() {
		out[FieldCreatedAt] = FormatTime(m.CreatedAt)
	}
	if !m.UpdatedAt.IsZero() {
		out[FieldUpdatedAt] = FormatTime(m.UpdatedAt)
	}
}

func metaFromDocument(doc map[string]any) Meta {
	return Meta{
		ID:        stringField(doc, FieldID),
		CreatedAt: ParseTime(doc[FieldCreatedAt]),
		UpdatedAt: ParseTime(doc[FieldUpdatedAt]),
	}
}

// FormatTime renders a timestamp the way records store it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime reads a stored timestamp. Unparseable values yield the zero time.
func ParseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return parsed.UTC()
	default:
		return time.Time{}
	}
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

// Metadata exposes the store-managed fields for in-place updates.
func (m *Meta) Metadata() *Meta {
	return m
}

// Loaded returns the field values last read from or written to the store, or
// nil when the record was not loaded through a repository.
func (m *Meta) Loaded() map[string]any {
	return m.loaded
}

// MarkLoaded records values as the stored state.
func (m *Meta) MarkLoaded(values map[string]any) {
	m.loaded = values
}
