// Package pgstore stores documents as JSONB rows in PostgreSQL.
//
// Every collection shares the documents table (see migrations/), keyed by
// (collection, id). Exact-match filters become JSONB containment checks so the
// GIN index on data serves them.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/store"
)

const (
	documentsTable  = "documents"
	uniqueViolation = "23505"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Database is a document store backed by a pgx pool.
type Database struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New wraps an open pool. The pool is closed by Close.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Database {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Database{pool: pool, logger: logger}
}

// Collection returns a handle scoped to the named collection.
func (d *Database) Collection(name string) store.Collection {
	return &Collection{name: name, q: d.pool, logger: d.logger}
}

// Ping checks connectivity.
func (d *Database) Ping(ctx context.Context) error {
	if d.pool == nil {
		return store.ErrClosed
	}
	return d.pool.Ping(ctx)
}

// Close releases the pool.
func (d *Database) Close(ctx context.Context) error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// Collection implements store.Collection over the documents table.
type Collection struct {
	name   string
	q      querier
	logger *zap.Logger
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Insert writes a new row, generating a UUID v7 identity when missing.
func (c *Collection) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	stored := doc.Clone()
	if stored == nil {
		stored = store.Document{}
	}
	id := stored.ID()
	if id == "" {
		id = newID()
		stored[store.IDField] = id
	}

	data := stored.Clone()
	delete(data, store.IDField)
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	query, args, err := psql.Insert(documentsTable).
		Columns("collection", "id", "data").
		Values(c.name, id, sq.Expr("?::jsonb", string(raw))).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := c.q.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, store.ErrDuplicateID
		}
		return nil, fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return stored, nil
}

// Find streams matching rows ordered by insertion sequence.
func (c *Collection) Find(ctx context.Context, filter store.Filter) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		query, args, err := c.selectQuery(filter, 0)
		if err != nil {
			yield(nil, err)
			return
		}
		rows, err := c.q.Query(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("query %s: %w", c.name, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			doc, err := scanDocument(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// FindOne returns the earliest inserted match.
func (c *Collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, bool, error) {
	query, args, err := c.selectQuery(filter, 1)
	if err != nil {
		return nil, false, err
	}
	doc, err := scanDocument(c.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// UpdateOne merges patch into the earliest inserted match.
func (c *Collection) UpdateOne(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return c.update(ctx, filter, patch, true)
}

// UpdateMany merges patch into every match.
func (c *Collection) UpdateMany(ctx context.Context, filter store.Filter, patch store.Patch) (int64, error) {
	return c.update(ctx, filter, patch, false)
}

// DeleteOne removes the earliest inserted match.
func (c *Collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	return c.delete(ctx, filter, true)
}

// DeleteMany removes every match.
func (c *Collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	return c.delete(ctx, filter, false)
}

func (c *Collection) update(ctx context.Context, filter store.Filter, patch store.Patch, single bool) (int64, error) {
	query, args, err := c.updateQuery(filter, patch, single)
	if err != nil {
		return 0, err
	}
	tag, err := c.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.name, err)
	}
	c.logger.Debug("documents updated", zap.String("collection", c.name), zap.Int64("count", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (c *Collection) delete(ctx context.Context, filter store.Filter, single bool) (int64, error) {
	query, args, err := c.deleteQuery(filter, single)
	if err != nil {
		return 0, err
	}
	tag, err := c.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.name, err)
	}
	c.logger.Debug("documents deleted", zap.String("collection", c.name), zap.Int64("count", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (c *Collection) selectQuery(filter store.Filter, limit uint64) (string, []any, error) {
	where, err := c.where(filter)
	if err != nil {
		return "", nil, err
	}
	b := psql.Select("id", "data").
		From(documentsTable).
		Where(where).
		OrderBy("seq ASC")
	if limit > 0 {
		b = b.Limit(limit)
	}
	return b.ToSql()
}

func (c *Collection) updateQuery(filter store.Filter, patch store.Patch, single bool) (string, []any, error) {
	if err := patch.Validate(); err != nil {
		return "", nil, err
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return "", nil, fmt.Errorf("encode patch: %w", err)
	}
	b := psql.Update(documentsTable).
		Set("data", sq.Expr("data || ?::jsonb", string(raw))).
		Set("updated_at", sq.Expr("NOW()"))

	if single {
		sub, subArgs, err := c.firstSeq(filter)
		if err != nil {
			return "", nil, err
		}
		b = b.Where("seq = ("+sub+")", subArgs...)
	} else {
		where, err := c.where(filter)
		if err != nil {
			return "", nil, err
		}
		b = b.Where(where)
	}
	return b.ToSql()
}

func (c *Collection) deleteQuery(filter store.Filter, single bool) (string, []any, error) {
	b := psql.Delete(documentsTable)
	if single {
		sub, subArgs, err := c.firstSeq(filter)
		if err != nil {
			return "", nil, err
		}
		b = b.Where("seq = ("+sub+")", subArgs...)
	} else {
		where, err := c.where(filter)
		if err != nil {
			return "", nil, err
		}
		b = b.Where(where)
	}
	return b.ToSql()
}

// firstSeq renders the sub-select for the earliest match with ? placeholders;
// the outer builder numbers them.
func (c *Collection) firstSeq(filter store.Filter) (string, []any, error) {
	where, err := c.where(filter)
	if err != nil {
		return "", nil, err
	}
	return sq.Select("seq").
		From(documentsTable).
		Where(where).
		OrderBy("seq ASC").
		Limit(1).
		ToSql()
}

func (c *Collection) where(filter store.Filter) (sq.And, error) {
	conds := sq.And{sq.Eq{"collection": c.name}}
	fields := make(map[string]any, len(filter))
	for k, v := range filter {
		if k != store.IDField {
			fields[k] = v
			continue
		}
		id, ok := v.(string)
		if !ok {
			conds = append(conds, sq.Expr("FALSE"))
			continue
		}
		conds = append(conds, sq.Eq{"id": id})
	}
	if len(fields) > 0 {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		conds = append(conds, sq.Expr("data @> ?::jsonb", string(raw)))
	}
	return conds, nil
}

func scanDocument(row pgx.Row) (store.Document, error) {
	var (
		id  string
		raw []byte
	)
	if err := row.Scan(&id, &raw); err != nil {
		return nil, err
	}
	doc := store.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	doc[store.IDField] = id
	return doc, nil
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
