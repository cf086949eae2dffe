package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/content"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL_ExpiresEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := NewTTL[int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Empty(t, c.m)
}

func TestTTL_DeleteAndClear(t *testing.T) {
	c := NewTTL[string](time.Minute)
	c.Set("a", "x")
	c.Set("b", "y")

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestTTL_NonPositiveTTLGetsDefault(t *testing.T) {
	c := NewTTL[int](0)
	assert.Equal(t, 5*time.Second, c.ttl)
}

func TestMemoryPages_RoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPages(time.Minute)

	_, ok := p.Get(ctx, "home")
	assert.False(t, ok)

	items := []content.Item{{Page: "home", Section: "hero", Key: "title", Value: "Welcome"}}
	p.Set(ctx, "home", items)

	got, ok := p.Get(ctx, "home")
	require.True(t, ok)
	assert.Equal(t, items, got)

	// pages are keyed independently
	_, ok = p.Get(ctx, "about")
	assert.False(t, ok)

	p.Invalidate(ctx, "home")
	_, ok = p.Get(ctx, "home")
	assert.False(t, ok)
}

func TestRedisPages_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis cache test")
	}

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	p := NewRedisPages(rdb, time.Minute, nil)
	page := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { p.Invalidate(ctx, page) })

	_, ok := p.Get(ctx, page)
	assert.False(t, ok)

	items := []content.Item{{Page: page, Section: "s", Key: "k", Value: "v", UpdatedAt: time.Now().UTC().Truncate(time.Second)}}
	p.Set(ctx, page, items)

	got, ok := p.Get(ctx, page)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "v", got[0].Value)
	assert.True(t, items[0].UpdatedAt.Equal(got[0].UpdatedAt))

	p.Invalidate(ctx, page)
	_, ok = p.Get(ctx, page)
	assert.False(t, ok)
}

func TestRedisPages_UnreachableServerIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	p := NewRedisPages(rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		p.Set(ctx, "home", []content.Item{{Page: "home"}})
		p.Invalidate(ctx, "home")
	})

	_, ok := p.Get(ctx, "home")
	assert.False(t, ok)
}
