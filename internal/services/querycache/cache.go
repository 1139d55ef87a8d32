package querycache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Cache is an advisory Redis-backed result cache. Every backend failure is
// absorbed: reads degrade to a miss, writes to a no-op. Cache availability must
// never block or fail a query.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached rows for key, or ok=false on a miss. Backend errors
// and corrupt payloads are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]map[string]interface{}, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Query cache read failed, treating as miss", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		slog.Warn("Query cache payload corrupt, treating as miss", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}

	return rows, true
}

// Set stores rows under key with the configured TTL. Failures are dropped.
func (c *Cache) Set(ctx context.Context, key string, rows []map[string]interface{}) {
	raw, err := json.Marshal(rows)
	if err != nil {
		slog.Warn("Query cache encode failed, dropping write", slog.String("key", key), slog.Any("error", err))
		return
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("Query cache write failed, dropping write", slog.String("key", key), slog.Any("error", err))
	}
}
