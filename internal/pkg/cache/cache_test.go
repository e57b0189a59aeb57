package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/pkg/logger"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *memCache) TTL(context.Context, string) (time.Duration, error) { return time.Minute, nil }

func (m *memCache) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	return nil
}

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestGetOrLoad_CachesResult(t *testing.T) {
	c := newMemCache()
	calls := 0
	load := func(context.Context) ([]item, error) {
		calls++
		return []item{{ID: 1, Name: "a"}}, nil
	}

	first, err := GetOrLoad(context.Background(), c, logger.Discard(), "reviews:apartment:1:0", time.Minute, load)
	require.NoError(t, err)
	second, err := GetOrLoad(context.Background(), c, logger.Discard(), "reviews:apartment:1:0", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestGetOrLoad_LoadErrorNotCached(t *testing.T) {
	c := newMemCache()
	boom := errors.New("db down")

	_, err := GetOrLoad(context.Background(), c, nil, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.sets)
}

func TestInvalidate_ByPrefix(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "reviews:apartment:1:0", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "reviews:apartment:1:20", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "reviews:apartment:2:0", []byte("1"), time.Minute))

	Invalidate(ctx, c, nil, "reviews:apartment:1:")

	assert.Len(t, c.data, 1)
	_, ok := c.data["reviews:apartment:2:0"]
	assert.True(t, ok)
}

// An unreachable redis must degrade to direct loads, never to failure.
func TestGetOrLoad_FailsOpenWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewRedis(rdb, "test")
	calls := 0

	got, err := GetOrLoad(context.Background(), c, logger.Discard(), "k", time.Minute, func(context.Context) (string, error) {
		calls++
		return "from-store", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "from-store", got)
	assert.Equal(t, 1, calls)

	Invalidate(context.Background(), c, logger.Discard(), "k")
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	_, ok, err := c.Get(context.Background(), "x")
	assert.NoError(t, err)
	assert.False(t, ok)
}
