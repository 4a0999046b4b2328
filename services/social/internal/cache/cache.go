// Package cache holds actor-independent post and profile records between
// writes. Counts, trending rankings and comment trees are always recomputed
// and never pass through here.
//
// Every key carries a generation that Delete bumps. Load reads the
// generation before fetching and stores the result only if it is unchanged,
// so a read that raced an invalidation cannot put its stale value back.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yond5413/pentagram/internal/platform/metrics"
)

const keyPrefix = "pentagram:"

func PostKey(postID string) string { return keyPrefix + "post:" + postID }

func ProfileKey(userID string) string { return keyPrefix + "profile:" + userID }

func genKey(key string) string { return key + ":gen" }

// Cache stores JSON-encoded values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	// Generation returns the number of times key has been deleted.
	Generation(ctx context.Context, key string) (uint64, error)
	// SetIfGeneration stores value only while key is still at gen.
	SetIfGeneration(ctx context.Context, key string, value any, gen uint64) (bool, error)
	// Delete removes keys and bumps their generations.
	Delete(ctx context.Context, keys ...string) error
}

// genTTL bounds how long a generation counter outlives its last delete. A
// load slower than this could be fenced wrongly, never admitted wrongly.
const genTTL = 24 * time.Hour

var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if not cur then cur = '0' end
if cur ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{Client: redis.NewClient(opt), TTL: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, b, c.TTL).Err()
}

func (c *RedisCache) Generation(ctx context.Context, key string) (uint64, error) {
	v, err := c.Client.Get(ctx, genKey(key)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisCache) SetIfGeneration(ctx context.Context, key string, value any, gen uint64) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	n, err := setIfGeneration.Run(ctx, c.Client,
		[]string{key, genKey(key)},
		strconv.FormatUint(gen, 10), b, c.TTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		for _, k := range keys {
			p.Incr(ctx, genKey(k))
			p.Expire(ctx, genKey(k), genTTL)
		}
		return nil
	})
	return err
}

// Load returns the cached value under key, or calls fetch and stores its
// result unless key was invalidated while fetch ran. Cache failures are
// logged and fall through to fetch; a nil cache always fetches.
func Load[T any](ctx context.Context, c Cache, log *zap.Logger, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return fetch(ctx)
	}
	if log == nil {
		log = zap.NewNop()
	}

	var cached T
	ok, err := c.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		log.Warn("cache: get failed", zap.String("key", key), zap.Error(err))
	case ok:
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	gen, genErr := c.Generation(ctx, key)
	if genErr != nil {
		log.Warn("cache: generation failed", zap.String("key", key), zap.Error(genErr))
	}

	v, err := fetch(ctx)
	if err != nil || genErr != nil {
		return v, err
	}
	stored, err := c.SetIfGeneration(ctx, key, v, gen)
	switch {
	case err != nil:
		log.Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	case !stored:
		metrics.CacheRequests.WithLabelValues("fenced").Inc()
		log.Debug("cache: invalidated during load, not stored", zap.String("key", key))
	}
	return v, nil
}
