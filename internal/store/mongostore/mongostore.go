// Package mongostore maps the document store contract onto MongoDB
// collections. Store identities are the hex form of the _id ObjectID.
// Insertion order is kept in a _seq field drawn from a per-collection counter
// in the _sequences collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/store"
)

const (
	mongoIDField        = "_id"
	seqField            = "_seq"
	sequencesCollection = "_sequences"
)

var insertionOrder = bson.D{{Key: seqField, Value: 1}}

// Database wraps a connected client and the logical database in use.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// New binds the client to the named database.
func New(client *mongo.Client, database string, logger *zap.Logger) *Database {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Database{client: client, db: client.Database(database), logger: logger}
}

// Collection returns the named MongoDB collection.
func (d *Database) Collection(name string) store.Collection {
	return &Collection{
		coll:      d.db.Collection(name),
		sequences: d.db.Collection(sequencesCollection),
		logger:    d.logger,
	}
}

// Ping checks the primary is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Collection implements store.Collection on a mongo.Collection.
type Collection struct {
	coll      *mongo.Collection
	sequences *mongo.Collection
	logger    *zap.Logger
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.coll.Name()
}

// Insert stores doc, generating an ObjectID when no identity is given.
func (c *Collection) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	seq, err := c.nextSeq(ctx)
	if err != nil {
		return nil, err
	}
	raw := toBSON(doc)
	raw[seqField] = seq
	if doc.ID() == "" {
		raw[mongoIDField] = primitive.NewObjectID()
	}
	if _, err := c.coll.InsertOne(ctx, raw); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrDuplicateID
		}
		return nil, fmt.Errorf("insert into %s: %w", c.Name(), err)
	}
	return fromBSON(raw), nil
}

// Find streams matches through a cursor opened on each iteration.
func (c *Collection) Find(ctx context.Context, filter store.Filter) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		cur, err := c.coll.Find(ctx, toFilter(filter), options.Find().SetSort(insertionOrder))
		if err != nil {
			yield(nil, fmt.Errorf("query %s: %w", c.Name(), err))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var raw bson.M
			if err := cur.Decode(&raw); err != nil {
				yield(nil, err)
				return
			}
			if !yield(fromBSON(raw), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// FindOne returns the earliest match.
func (c *Collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, bool, error) {
	var raw bson.M
	err := c.coll.FindOne(ctx, toFilter(filter), options.FindOne().SetSort(insertionOrder)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return fromBSON(raw), true, nil
}

// UpdateOne sets patch fields on the earliest match.
func (c *Collection) UpdateOne(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	opts := options.FindOneAndUpdate().SetSort(insertionOrder)
	err := c.coll.FindOneAndUpdate(ctx, toFilter(filter), setUpdate(patch), opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.Name(), err)
	}
	return 1, nil
}

// UpdateMany sets patch fields on every match.
func (c *Collection) UpdateMany(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	res, err := c.coll.UpdateMany(ctx, toFilter(filter), setUpdate(patch))
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.Name(), err)
	}
	c.logger.Debug("documents updated", zap.String("collection", c.Name()), zap.Int64("count", res.MatchedCount))
	return res.MatchedCount, nil
}

// DeleteOne removes the earliest match.
func (c *Collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	opts := options.FindOneAndDelete().SetSort(insertionOrder)
	err := c.coll.FindOneAndDelete(ctx, toFilter(filter), opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.Name(), err)
	}
	return 1, nil
}

// DeleteMany removes every match.
func (c *Collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, toFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.Name(), err)
	}
	c.logger.Debug("documents deleted", zap.String("collection", c.Name()), zap.Int64("count", res.DeletedCount))
	return res.DeletedCount, nil
}

// nextSeq atomically increments this collection's insertion counter.
func (c *Collection) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := c.sequences.FindOneAndUpdate(ctx,
		bson.M{mongoIDField: c.Name()},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", c.Name(), err)
	}
	return counter.Seq, nil
}

func setUpdate(patch store.Patch) bson.M {
	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}
	return bson.M{"$set": set}
}
