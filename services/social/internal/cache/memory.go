package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCache is a per-process Cache used when Redis is not configured.
// Values are stored encoded so callers never share mutable state.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memItem
	gens  map[string]uint64
	ttl   time.Duration
	now   func() time.Time
}

type memItem struct {
	data    []byte
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryCache{items: make(map[string]memItem), gens: make(map[string]uint64), ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok && !c.now().Before(it.expires) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(it.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memItem{data: b, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Generation(_ context.Context, key string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

func (c *MemoryCache) SetIfGeneration(_ context.Context, key string, value any, gen uint64) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false, nil
	}
	c.items[key] = memItem{data: b, expires: c.now().Add(c.ttl)}
	return true, nil
}

// Delete drops keys and bumps their generations. Generations are kept for
// the life of the process.
func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
		c.gens[k]++
	}
	return nil
}
