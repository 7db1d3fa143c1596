// Package cache keeps recently resolved departments in Redis so populate does
// not hit the document store for every employee.
//
// Each department is cached under its own key with its own expiry. Writes made
// by a read-through are guarded by a per-department version and a global
// generation: invalidation bumps them, and a load that started before the bump
// is never written back.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/domain"
	"github.com/spec-kit/company-directory/internal/repository"
)

const (
	entryPrefix   = "directory:departments:entry:"
	versionPrefix = "directory:departments:version:"
	// GenerationKey is bumped by InvalidateAll.
	GenerationKey = "directory:departments:generation"

	// versionTTL must outlive any in-flight read-through.
	versionTTL = 24 * time.Hour
	scanBatch  = 100
)

var errStale = errors.New("department changed while loading")

// EntryKey is the Redis key holding the cached department id.
func EntryKey(id string) string { return entryPrefix + id }

// VersionKey is the Redis key counting invalidations of department id.
func VersionKey(id string) string { return versionPrefix + id }

type cachedDepartment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// stamp is what a read-through saw before loading from the store.
type stamp struct {
	generation any
	version    any
}

// DepartmentCache is a read-through cache in front of a DepartmentReader.
// With a nil client every call goes straight to the reader.
type DepartmentCache struct {
	client *redis.Client
	next   repository.DepartmentReader
	ttl    time.Duration
	logger *zap.Logger
}

// NewDepartmentCache wraps next. client may be nil. A zero ttl keeps entries
// until invalidated.
func NewDepartmentCache(client *redis.Client, next repository.DepartmentReader, ttl time.Duration, logger *zap.Logger) *DepartmentCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentCache{client: client, next: next, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is configured.
func (c *DepartmentCache) Enabled() bool {
	return c.client != nil
}

// GetByID returns the cached department or loads and caches it. Redis
// failures are logged and fall back to the reader.
func (c *DepartmentCache) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	if !c.Enabled() {
		return c.next.GetByID(ctx, id)
	}

	raw, err := c.client.Get(ctx, EntryKey(id)).Result()
	switch {
	case err == nil:
		if dept, ok := decode(raw); ok {
			return dept, nil
		}
		c.logger.Warn("discarding malformed cache entry", zap.String("id", id))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("department cache read failed", zap.String("id", id), zap.Error(err))
		return c.next.GetByID(ctx, id)
	}

	seen, err := readStamp(ctx, c.client, id)
	if err != nil {
		c.logger.Warn("department cache read failed", zap.String("id", id), zap.Error(err))
		return c.next.GetByID(ctx, id)
	}

	dept, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, dept, seen)
	return dept, nil
}

// store writes dept unless the department or the whole cache was invalidated
// after seen was read.
func (c *DepartmentCache) store(ctx context.Context, dept *domain.Department, seen stamp) {
	payload, err := json.Marshal(cachedDepartment{
		ID:        dept.ID,
		Name:      dept.Name,
		CreatedAt: dept.CreatedAt,
		UpdatedAt: dept.UpdatedAt,
	})
	if err != nil {
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readStamp(ctx, tx, dept.ID)
		if err != nil {
			return err
		}
		if current != seen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, EntryKey(dept.ID), payload, c.ttl)
			return nil
		})
		return err
	}, GenerationKey, VersionKey(dept.ID))

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("skipping stale department cache write", zap.String("id", dept.ID))
	default:
		c.logger.Warn("department cache write failed", zap.String("id", dept.ID), zap.Error(err))
	}
}

// Invalidate drops the given departments and fences off loads already in flight.
func (c *DepartmentCache) Invalidate(ctx context.Context, ids ...string) {
	if !c.Enabled() || len(ids) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, VersionKey(id))
			pipe.Expire(ctx, VersionKey(id), versionTTL)
			pipe.Del(ctx, EntryKey(id))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("department cache invalidate failed", zap.Strings("ids", ids), zap.Error(err))
	}
}

// InvalidateAll drops every cached department. Used after bulk writes whose
// affected identities are unknown.
func (c *DepartmentCache) InvalidateAll(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, GenerationKey).Err(); err != nil {
		c.logger.Warn("department cache flush failed", zap.Error(err))
		return
	}

	var keys []string
	it := c.client.Scan(ctx, 0, entryPrefix+"*", scanBatch).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
		if len(keys) == scanBatch {
			c.del(ctx, keys)
			keys = keys[:0]
		}
	}
	if err := it.Err(); err != nil {
		c.logger.Warn("department cache flush failed", zap.Error(err))
	}
	c.del(ctx, keys)
}

func (c *DepartmentCache) del(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("department cache flush failed", zap.Error(err))
	}
}

type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readStamp(ctx context.Context, cmd multiGetter, id string) (stamp, error) {
	vals, err := cmd.MGet(ctx, GenerationKey, VersionKey(id)).Result()
	if err != nil {
		return stamp{}, err
	}
	return stamp{generation: vals[0], version: vals[1]}, nil
}

func decode(raw string) (*domain.Department, bool) {
	var cached cachedDepartment
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.ID == "" {
		return nil, false
	}
	return &domain.Department{
		Meta: domain.Meta{ID: cached.ID, CreatedAt: cached.CreatedAt, UpdatedAt: cached.UpdatedAt},
		Name: cached.Name,
	}, true
}
