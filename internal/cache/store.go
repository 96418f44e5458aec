// Package cache publishes and reads per-strategy contender lists. Publish is
// always a single whole-value write: readers never observe a partially
// written array.
package cache

import (
	"context"
	"os"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "amc:discovery:v2:contenders.latest"

// Store is the minimal byte-oriented cache contract. Callers marshal full
// payloads and hand them to Set whole; there is no partial-update path.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// StrategyKey returns the strategy-scoped contenders key.
func StrategyKey(strategyID string) string {
	return keyPrefix + ":" + strategyID
}

// FallbackKey returns the unsuffixed key pointing at the default strategy.
func FallbackKey() string {
	return keyPrefix
}

// memStore is an in-process fallback used when no REDIS_ADDR is configured.
type memStore struct {
	mu sync.RWMutex
	m  map[string]entry
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory builds an in-memory Store.
func NewMemory() Store {
	return &memStore{m: make(map[string]entry)}
}

func (c *memStore) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false
	}
	return e.b, true
}

func (c *memStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
	return nil
}

// redisStore wraps a redis/go-redis/v9 client.
type redisStore struct {
	r *redis.Client
}

// NewAuto picks Redis when REDIS_ADDR is set, otherwise an in-memory store.
func NewAuto() Store {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return &redisStore{r: redis.NewClient(&redis.Options{Addr: addr})}
	}
	return NewMemory()
}

func (r *redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	v, err := r.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (r *redisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return r.r.Set(ctx, key, val, ttl).Err()
}
