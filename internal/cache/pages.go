package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/content"
	"github.com/redis/go-redis/v9"
)

// Pages caches the editable content of public pages by page name. A miss is never an
// error; callers fall through to the database.
type Pages interface {
	Get(ctx context.Context, page string) ([]content.Item, bool)
	Set(ctx context.Context, page string, items []content.Item)
	Invalidate(ctx context.Context, page string)
}

func pageKey(page string) string {
	return "content:page:v1:" + page
}

type MemoryPages struct {
	c *TTL[[]content.Item]
}

func NewMemoryPages(ttl time.Duration) *MemoryPages {
	return &MemoryPages{c: NewTTL[[]content.Item](ttl)}
}

func (m *MemoryPages) Get(_ context.Context, page string) ([]content.Item, bool) {
	return m.c.Get(pageKey(page))
}

func (m *MemoryPages) Set(_ context.Context, page string, items []content.Item) {
	m.c.Set(pageKey(page), items)
}

func (m *MemoryPages) Invalidate(_ context.Context, page string) {
	m.c.Delete(pageKey(page))
}

// RedisPages shares the page cache between instances. Redis failures degrade to misses.
type RedisPages struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisPages(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisPages {
	if log == nil {
		log = slog.Default()
	}
	return &RedisPages{rdb: rdb, ttl: ttl, log: log}
}

func (r *RedisPages) Get(ctx context.Context, page string) ([]content.Item, bool) {
	raw, err := r.rdb.Get(ctx, pageKey(page)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "content cache get failed", "page", page, "err", err)
		}
		return nil, false
	}

	var items []content.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		r.log.WarnContext(ctx, "content cache entry corrupt", "page", page, "err", err)
		return nil, false
	}
	return items, true
}

func (r *RedisPages) Set(ctx context.Context, page string, items []content.Item) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, pageKey(page), raw, r.ttl).Err(); err != nil {
		r.log.WarnContext(ctx, "content cache set failed", "page", page, "err", err)
	}
}

func (r *RedisPages) Invalidate(ctx context.Context, page string) {
	if err := r.rdb.Del(ctx, pageKey(page)).Err(); err != nil {
		r.log.WarnContext(ctx, "content cache invalidate failed", "page", page, "err", err)
	}
}
