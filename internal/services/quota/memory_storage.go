package quota

import (
	"context"
	"sync"
	"time"
)

// tokenBucket is a single in-process token bucket.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	capacity   float64
	refillRate float64 // tokens per second
}

// consume attempts to consume the requested number of tokens.
func (tb *tokenBucket) consume(tokens float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()

	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= tokens {
		tb.tokens -= tokens
		return true
	}

	return false
}

// MemoryStorage keeps token buckets in process memory. Suitable for a single
// instance and for tests; distributed deployments use RedisStorage.
type MemoryStorage struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{buckets: make(map[string]*tokenBucket)}
}

func (s *MemoryStorage) Allow(ctx context.Context, tenantID string, limit int64, window time.Duration) (bool, error) {
	s.mu.Lock()
	tb, ok := s.buckets[tenantID]
	if !ok || tb.capacity != float64(limit) {
		tb = &tokenBucket{
			tokens:     float64(limit),
			lastRefill: time.Now(),
			capacity:   float64(limit),
			refillRate: float64(limit) / window.Seconds(),
		}
		s.buckets[tenantID] = tb
	}
	s.mu.Unlock()

	return tb.consume(1), nil
}
