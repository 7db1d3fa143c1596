// Package store defines the document store contract used by the repositories.
// Backends live in the memory, pgstore and mongostore subpackages.
package store

import (
	"context"
	"errors"
	"iter"
	"maps"
	"reflect"
)

// IDField is the document key holding the store-assigned identity.
const IDField = "id"

// Store errors.
var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidPatch = errors.New("invalid patch")
	ErrClosed       = errors.New("store is closed")
	ErrDuplicateID  = errors.New("duplicate document id")
)

// Document is a single stored record keyed by field name.
type Document map[string]any

// Filter selects documents by exact field equality. An empty filter matches
// every document in the collection.
type Filter map[string]any

// Patch lists the fields to set on matching documents.
type Patch map[string]any

// Collection is a named set of documents inside a Database.
type Collection interface {
	Name() string

	// Insert persists doc and returns the stored copy. An empty id is
	// replaced with a generated identity.
	Insert(ctx context.Context, doc Document) (Document, error)

	// Find returns the documents matching filter in insertion order. Each
	// range over the sequence runs the query again.
	Find(ctx context.Context, filter Filter) iter.Seq2[Document, error]

	// FindOne returns the first match. found is false when nothing matches.
	FindOne(ctx context.Context, filter Filter) (doc Document, found bool, err error)

	UpdateOne(ctx context.Context, filter Filter, patch Patch) (int64, error)
	UpdateMany(ctx context.Context, filter Filter, patch Patch) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

// Database is an open handle to a document store. Close must be called once
// the process no longer needs it.
type Database interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ID returns the document identity or an empty string.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// ByID builds a filter selecting a single identity.
func ByID(id string) Filter {
	return Filter{IDField: id}
}

// Matches reports whether every filter field equals the document field.
func (f Filter) Matches(doc Document) bool {
	for k, want := range f {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Validate rejects empty patches and patches that try to change identity.
func (p Patch) Validate() error {
	if len(p) == 0 {
		return ErrInvalidPatch
	}
	if _, ok := p[IDField]; ok {
		return ErrInvalidPatch
	}
	return nil
}

// Apply returns a copy of doc with the patch fields set.
func (p Patch) Apply(doc Document) Document {
	out := doc.Clone()
	if out == nil {
		out = Document{}
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Collect drains a Find sequence into a slice.
func Collect(seq iter.Seq2[Document, error]) ([]Document, error) {
	var out []Document
	for doc, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
