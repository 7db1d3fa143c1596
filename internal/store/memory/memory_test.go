package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/store/storetest"
)

func TestCollectionContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Database {
		db := New()
		t.Cleanup(func() { _ = db.Close(context.Background()) })
		return db
	})
}

func TestInsertCopiesDocument(t *testing.T) {
	ctx := context.Background()
	coll := New().Collection("departments")

	in := store.Document{"name": "Management"}
	out, err := coll.Insert(ctx, in)
	require.NoError(t, err)

	in["name"] = "changed"
	out["name"] = "changed too"

	got, found, err := coll.FindOne(ctx, store.ByID(out.ID()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Management", got["name"])
}

func TestClosedDatabase(t *testing.T) {
	ctx := context.Background()
	db := New()
	coll := db.Collection("employees")
	require.NoError(t, db.Close(ctx))
	require.NoError(t, db.Close(ctx))

	assert.ErrorIs(t, db.Ping(ctx), store.ErrClosed)

	_, err := coll.Insert(ctx, store.Document{"firstName": "John"})
	assert.ErrorIs(t, err, store.ErrClosed)

	_, _, err = coll.FindOne(ctx, store.Filter{})
	assert.ErrorIs(t, err, store.ErrClosed)

	_, err = store.Collect(coll.Find(ctx, store.Filter{}))
	assert.ErrorIs(t, err, store.ErrClosed)

	_, err = coll.DeleteMany(ctx, store.Filter{})
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestFindHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	coll := New().Collection("employees")
	_, err := coll.Insert(ctx, store.Document{"firstName": "John"})
	require.NoError(t, err)
	cancel()

	_, err = store.Collect(coll.Find(ctx, store.Filter{}))
	assert.ErrorIs(t, err, context.Canceled)
}
