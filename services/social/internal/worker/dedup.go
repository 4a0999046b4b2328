package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids. Check reports whether eventID was
// already seen and marks it seen otherwise.
type Deduper interface {
	Check(ctx context.Context, eventID string) (bool, error)
}

type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Check(ctx context.Context, eventID string) (bool, error) {
	key := "pentagram:event:" + eventID
	set, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	// SetNX returns true if the key was SET (i.e. NOT a duplicate).
	return !set, nil
}

// MemoryDeduper is a development-only Deduper. State is per process and
// entries expire after ttl.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryDeduper{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *MemoryDeduper) Check(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[eventID]; ok && now.Sub(at) < d.ttl {
		return true, nil
	}
	d.seen[eventID] = now
	if len(d.seen) > 10000 {
		for id, at := range d.seen {
			if now.Sub(at) >= d.ttl {
				delete(d.seen, id)
			}
		}
	}
	return false, nil
}
