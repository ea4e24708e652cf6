package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Bind it to a specific view type T; each instance holds a Redis client and an
// optional TTL (pass 0 for keys that should not expire). A nil client turns
// the cache into a no-op that always misses.
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
func NewViewCache[T any](client *goredis.Client, ttl time.Duration, log *zap.Logger) *ViewCache[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &ViewCache[T]{client: client, ttl: ttl, log: log}
}

func (c *ViewCache[T]) Enabled() bool {
	return c != nil && c.client != nil
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("view cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		c.log.Warn("view cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &v, true
}

// Set marshals value and stores it in Redis under key.
// Errors are logged rather than returned; a cache write miss is non-fatal.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error("view cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// retiredVersion outranks every real version. Lua numbers are doubles, so
// versions must stay below 2^53.
const retiredVersion int64 = 1<<53 - 1

// setIfNewer writes KEYS[1] only when the version stored at KEYS[2] is not
// newer than ARGV[2]. The version key never expires.
var setIfNewer = goredis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current and tonumber(current) > tonumber(ARGV[2]) then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

func versionKey(key string) string {
	return key + ":version"
}

// SetVersioned stores value only if no newer version of key has been written.
// A reader that loaded a row before a writer committed can then never put
// the older copy back. It reports whether the value was stored.
func (c *ViewCache[T]) SetVersioned(ctx context.Context, key string, version int64, value *T) bool {
	if !c.Enabled() {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error("view cache marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	stored, err := setIfNewer.Run(ctx, c.client,
		[]string{key, versionKey(key)},
		string(data), strconv.FormatInt(version, 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return stored == 1
}

// Retire deletes key and pins its version above any real one, so an in-flight
// SetVersioned for a removed entity is refused.
func (c *ViewCache[T]) Retire(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, versionKey(key), retiredVersion, 0)
		return nil
	})
	if err != nil {
		c.log.Warn("view cache retire failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes keys from Redis.
func (c *ViewCache[T]) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("view cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
