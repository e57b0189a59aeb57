// Package cache is a read-path acceleration layer. Entries are never the
// source of truth; callers fall back to the store on any cache error.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrLoad returns the cached JSON value for key, or calls load and caches
// its result. Cache failures are logged and never returned.
func GetOrLoad[T any](ctx context.Context, c Cache, log *slog.Logger, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if c != nil {
		raw, ok, err := c.Get(ctx, key)
		switch {
		case err != nil:
			warn(log, "cache get failed", key, err)
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			warn(log, "cache entry undecodable", key, err)
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if c != nil {
		raw, err := json.Marshal(v)
		if err == nil {
			err = c.Set(ctx, key, raw, ttl)
		}
		if err != nil {
			warn(log, "cache set failed", key, err)
		}
	}
	return v, nil
}

// Invalidate drops every entry under prefix, logging failures.
func Invalidate(ctx context.Context, c Cache, log *slog.Logger, prefix string) {
	if c == nil {
		return
	}
	if err := c.DeleteByPrefix(ctx, prefix); err != nil {
		warn(log, "cache invalidation failed", prefix, err)
	}
}

func warn(log *slog.Logger, msg, key string, err error) {
	if log != nil {
		log.Warn(msg, "key", key, "error", err)
	}
}

// Noop is used when no cache is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error                  { return nil }
func (Noop) Exists(context.Context, string) (bool, error)             { return false, nil }
func (Noop) TTL(context.Context, string) (time.Duration, error)       { return 0, nil }
func (Noop) DeleteByPrefix(context.Context, string) error             { return nil }

var _ Cache = Noop{}
