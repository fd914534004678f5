package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/clock"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces snapshot keys.
const DefaultPrefix = "acs"

// RedisCache shares snapshots between processes through Redis.
type RedisCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	clk    clock.Clock
}

// NewRedis returns a RedisCache. Empty prefix and non-positive ttl take defaults.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration, clk clock.Clock) *RedisCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &RedisCache{redis: client, prefix: prefix, ttl: ttl, clk: clk}
}

func (c *RedisCache) key(user session.User) string {
	return c.prefix + ":" + keyFor(user)
}

// Get loads the snapshot for user. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, user session.User) (Snapshot, bool, error) {
	data, err := c.redis.Get(ctx, c.key(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !snap.Fresh(c.clk.Now(), c.ttl) {
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Put writes snap with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, snap Snapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = c.clk.Now()
	}
	encoded, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(snap.User), encoded, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the snapshot for user.
func (c *RedisCache) Delete(ctx context.Context, user session.User) error {
	if err := c.redis.Del(ctx, c.key(user)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
