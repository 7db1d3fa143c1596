// Package storetest holds the behavioural contract every store backend must
// satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/company-directory/internal/store"
)

// Opener returns a ready database for a single subtest.
type Opener func(t *testing.T) store.Database

// Run executes the collection contract against the database returned by open.
func Run(t *testing.T, open Opener) {
	t.Run("insert assigns identity", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)

		doc, err := coll.Insert(ctx, store.Document{"firstName": "John"})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID())
		assert.Equal(t, "John", doc["firstName"])

		got, found, err := coll.FindOne(ctx, store.ByID(doc.ID()))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "John", got["firstName"])
	})

	t.Run("insert keeps provided identity", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)

		doc, err := coll.Insert(ctx, store.Document{store.IDField: "abc-1", "name": "Management"})
		require.NoError(t, err)
		assert.Equal(t, "abc-1", doc.ID())

		_, err = coll.Insert(ctx, store.Document{store.IDField: "abc-1", "name": "Other"})
		assert.ErrorIs(t, err, store.ErrDuplicateID)
	})

	t.Run("find returns every document in insertion order", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{}))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "John", docs[0]["firstName"])
		assert.Equal(t, "Amanda", docs[1]["firstName"])
	})

	t.Run("single-document operations pick the earliest insert across id kinds", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		_, err := coll.Insert(ctx, store.Document{store.IDField: "zz-1", "firstName": "First", "lastName": "Doe"})
		require.NoError(t, err)
		second, err := coll.Insert(ctx, store.Document{"firstName": "Second", "lastName": "Doe"})
		require.NoError(t, err)

		doc, ok, err := coll.FindOne(ctx, store.Filter{"lastName": "Doe"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "zz-1", doc.ID())

		n, err := coll.UpdateOne(ctx, store.Filter{"lastName": "Doe"}, store.Patch{"firstName": "Updated"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = coll.DeleteOne(ctx, store.Filter{"firstName": "Updated"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{"lastName": "Doe"}))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, second.ID(), docs[0].ID())
		assert.Equal(t, "Second", docs[0]["firstName"])
	})

	t.Run("find is restartable", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		seq := coll.Find(ctx, store.Filter{"lastName": "Amber"})
		first, err := store.Collect(seq)
		require.NoError(t, err)
		second, err := store.Collect(seq)
		require.NoError(t, err)
		assert.Len(t, first, 1)
		assert.Equal(t, first, second)
	})

	t.Run("find with no matches is empty", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{"firstName": "Nobody"}))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("find stops when the consumer breaks", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n := 0
		for _, err := range coll.Find(ctx, store.Filter{}) {
			require.NoError(t, err)
			n++
			break
		}
		assert.Equal(t, 1, n)
	})

	t.Run("find one by various fields", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		byFirst, found, err := coll.FindOne(ctx, store.Filter{"firstName": "John"})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "John", byFirst["firstName"])

		byLast, found, err := coll.FindOne(ctx, store.Filter{"lastName": "Amber"})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Amber", byLast["lastName"])

		byDept, found, err := coll.FindOne(ctx, store.Filter{"department": "344567"})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Amanda", byDept["firstName"])
	})

	t.Run("find one reports absence without error", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)

		doc, found, err := coll.FindOne(ctx, store.Filter{"firstName": "John"})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, doc)
	})

	t.Run("update one", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n, err := coll.UpdateOne(ctx, store.Filter{"firstName": "John"}, store.Patch{"firstName": "Jake"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, found, err := coll.FindOne(ctx, store.Filter{"firstName": "Jake"})
		require.NoError(t, err)
		assert.True(t, found)

		_, found, err = coll.FindOne(ctx, store.Filter{"firstName": "John"})
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("update one touches a single document", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n, err := coll.UpdateOne(ctx, store.Filter{}, store.Patch{"lastName": "Smith"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{"lastName": "Smith"}))
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("update keeps other fields and identity", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		ids := seedEmployees(t, coll)

		_, err := coll.UpdateOne(ctx, store.ByID(ids[0]), store.Patch{"firstName": "Jake"})
		require.NoError(t, err)

		doc, found, err := coll.FindOne(ctx, store.ByID(ids[0]))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Jake", doc["firstName"])
		assert.Equal(t, "Doe", doc["lastName"])
		assert.Equal(t, "155463", doc["department"])
	})

	t.Run("update without match counts zero", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n, err := coll.UpdateOne(ctx, store.Filter{"firstName": "Nobody"}, store.Patch{"firstName": "Jake"})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("update rejects invalid patches", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		_, err := coll.UpdateMany(ctx, store.Filter{}, store.Patch{})
		assert.ErrorIs(t, err, store.ErrInvalidPatch)
		_, err = coll.UpdateMany(ctx, store.Filter{}, store.Patch{store.IDField: "x"})
		assert.ErrorIs(t, err, store.ErrInvalidPatch)
	})

	t.Run("update many", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n, err := coll.UpdateMany(ctx, store.Filter{}, store.Patch{"firstName": "Updated!"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{}))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		for _, doc := range docs {
			assert.Equal(t, "Updated!", doc["firstName"])
		}
	})

	t.Run("delete one", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n, err := coll.DeleteOne(ctx, store.Filter{"firstName": "John"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, found, err := coll.FindOne(ctx, store.Filter{"firstName": "John"})
		require.NoError(t, err)
		assert.False(t, found)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{}))
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("delete one of several matches", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n, err := coll.DeleteOne(ctx, store.Filter{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{}))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Amanda", docs[0]["firstName"])
	})

	t.Run("delete many", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		seedEmployees(t, coll)

		n, err := coll.DeleteMany(ctx, store.Filter{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		docs, err := store.Collect(coll.Find(ctx, store.Filter{}))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("deleted identity acts as not found", func(t *testing.T) {
		ctx := context.Background()
		coll := freshCollection(t, open)
		ids := seedEmployees(t, coll)

		_, err := coll.DeleteOne(ctx, store.ByID(ids[0]))
		require.NoError(t, err)

		n, err := coll.UpdateOne(ctx, store.ByID(ids[0]), store.Patch{"firstName": "Ghost"})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = coll.DeleteOne(ctx, store.ByID(ids[0]))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		ctx := context.Background()
		db := open(t)
		base := collectionName(t)
		a := db.Collection(base + "_a")
		b := db.Collection(base + "_b")
		_, err := a.DeleteMany(ctx, store.Filter{})
		require.NoError(t, err)
		_, err = b.DeleteMany(ctx, store.Filter{})
		require.NoError(t, err)

		_, err = a.Insert(ctx, store.Document{"name": "Management"})
		require.NoError(t, err)

		docs, err := store.Collect(b.Find(ctx, store.Filter{}))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func freshCollection(t *testing.T, open Opener) store.Collection {
	t.Helper()
	coll := open(t).Collection(collectionName(t))
	_, err := coll.DeleteMany(context.Background(), store.Filter{})
	require.NoError(t, err)
	return coll
}

func seedEmployees(t *testing.T, coll store.Collection) []string {
	t.Helper()
	ctx := context.Background()
	one, err := coll.Insert(ctx, store.Document{"firstName": "John", "lastName": "Doe", "department": "155463"})
	require.NoError(t, err)
	two, err := coll.Insert(ctx, store.Document{"firstName": "Amanda", "lastName": "Amber", "department": "344567"})
	require.NoError(t, err)
	return []string{one.ID(), two.ID()}
}

func collectionName(t *testing.T) string {
	r := strings.NewReplacer("/", "_", " ", "_", "-", "_")
	return fmt.Sprintf("contract_%s", strings.ToLower(r.Replace(t.Name())))
}
