// Package memory implements an in-process document store.
package memory

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/company-directory/internal/store"
)

// Database keeps every collection in memory.
type Database struct {
	mu          sync.RWMutex
	closed      bool
	collections map[string]*Collection
}

// New creates an empty in-memory database.
func New() *Database {
	return &Database{collections: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it on first use.
func (d *Database) Collection(name string) store.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[name]
	if !ok {
		c = &Collection{name: name, db: d}
		d.collections[name] = c
	}
	return c
}

// Ping reports ErrClosed once the database has been closed.
func (d *Database) Ping(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return store.ErrClosed
	}
	return nil
}

// Close marks the database closed. Idempotent.
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Database) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// Collection stores documents in insertion order.
type Collection struct {
	name string
	db   *Database

	mu   sync.RWMutex
	docs []store.Document
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Insert stores a copy of doc, generating a UUID v7 identity when missing.
func (c *Collection) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	if c.db.isClosed() {
		return nil, store.ErrClosed
	}
	stored := doc.Clone()
	if stored == nil {
		stored = store.Document{}
	}
	if stored.ID() == "" {
		stored[store.IDField] = newID()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.docs {
		if existing.ID() == stored.ID() {
			return nil, store.ErrDuplicateID
		}
	}
	c.docs = append(c.docs, stored)
	return stored.Clone(), nil
}

// Find snapshots the matching documents when iteration starts.
func (c *Collection) Find(ctx context.Context, filter store.Filter) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		if c.db.isClosed() {
			yield(nil, store.ErrClosed)
			return
		}
		for _, doc := range c.snapshot(filter) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// FindOne returns the first matching document.
func (c *Collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, bool, error) {
	if c.db.isClosed() {
		return nil, false, store.ErrClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		if filter.Matches(doc) {
			return doc.Clone(), true, nil
		}
	}
	return nil, false, nil
}

// UpdateOne sets patch fields on the first match.
func (c *Collection) UpdateOne(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return c.update(filter, patch, 1)
}

// UpdateMany sets patch fields on every match.
func (c *Collection) UpdateMany(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return c.update(filter, patch, -1)
}

// DeleteOne removes the first match.
func (c *Collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	return c.delete(filter, 1)
}

// DeleteMany removes every match.
func (c *Collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	return c.delete(filter, -1)
}

func (c *Collection) snapshot(filter store.Filter) []store.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]store.Document, 0, len(c.docs))
	for _, doc := range c.docs {
		if filter.Matches(doc) {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// update applies patch to at most limit matches; a negative limit means all.
func (c *Collection) update(filter store.Filter, patch store.Patch, limit int) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	if c.db.isClosed() {
		return 0, store.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for i, doc := range c.docs {
		if limit >= 0 && n >= int64(limit) {
			break
		}
		if !filter.Matches(doc) {
			continue
		}
		c.docs[i] = patch.Apply(doc)
		n++
	}
	return n, nil
}

func (c *Collection) delete(filter store.Filter, limit int) (int64, error) {
	if c.db.isClosed() {
		return 0, store.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.docs[:0]
	var n int64
	for _, doc := range c.docs {
		if (limit < 0 || n < int64(limit)) && filter.Matches(doc) {
			n++
			continue
		}
		kept = append(kept, doc)
	}
	clear(c.docs[len(kept):])
	c.docs = kept
	return n, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
