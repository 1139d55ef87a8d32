package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements Storage on Redis so the ceiling holds across
// instances. The bucket state lives in a Redis hash and the consume step runs
// as a Lua script, keeping refill and consumption atomic.
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStorage creates a Redis-backed quota storage. keyPrefix defaults to
// "cais:quota:" when empty.
func NewRedisStorage(client *redis.Client, keyPrefix string) *RedisStorage {
	if keyPrefix == "" {
		keyPrefix = "cais:quota:"
	}

	return &RedisStorage{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// The script atomically:
//  1. Gets or initializes bucket state
//  2. Refills tokens based on elapsed time
//  3. Consumes a token if available
//  4. Updates bucket state and expiration
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refillRate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local tokensToConsume = tonumber(ARGV[4])
	local windowSeconds = tonumber(ARGV[5])

	local bucketData = redis.call('HMGET', key, 'tokens', 'lastRefill')
	local tokensStr = bucketData[1]
	local lastRefillStr = bucketData[2]

	local tokens
	local lastRefill
	if tokensStr == false or tokensStr == nil then
		tokens = capacity
		lastRefill = now
	else
		tokens = tonumber(tokensStr)
		if tokens == nil then
			tokens = capacity
		end
		lastRefill = tonumber(lastRefillStr)
		if lastRefill == nil then
			lastRefill = now
		end
	end

	local elapsed = (now - lastRefill) / 1000000000

	if elapsed > 0 then
		local tokensToAdd = elapsed * refillRate
		tokens = math.min(capacity, tokens + tokensToAdd)
	end

	if tokens >= tokensToConsume then
		tokens = tokens - tokensToConsume
		redis.call('HSET', key, 'tokens', tostring(tokens), 'lastRefill', tostring(now))
		redis.call('EXPIRE', key, math.ceil(windowSeconds * 1.1))
		return 1
	else
		redis.call('HSET', key, 'tokens', tostring(tokens), 'lastRefill', tostring(now))
		redis.call('EXPIRE', key, math.ceil(windowSeconds * 1.1))
		return 0
	end
`)

func (s *RedisStorage) Allow(ctx context.Context, tenantID string, limit int64, window time.Duration) (bool, error) {
	capacity := float64(limit)
	refillRate := capacity / window.Seconds()
	now := time.Now().UnixNano()

	result, err := allowScript.Run(ctx, s.client, []string{s.bucketKey(tenantID)},
		capacity,
		refillRate,
		now,
		1.0,
		window.Seconds(),
	).Result()
	if err != nil {
		return false, fmt.Errorf("redis quota check failed: %w", err)
	}

	return result.(int64) == 1, nil
}

func (s *RedisStorage) bucketKey(tenantID string) string {
	return s.keyPrefix + tenantID
}

// Ping checks if the Redis connection is healthy.
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
