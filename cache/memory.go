package cache

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/clock"
	"github.com/MrEthical07/goAuthClient/session"
)

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.Mutex
	clk   clock.Clock
	ttl   time.Duration
	items map[string]Snapshot
}

// NewMemory returns an empty MemoryCache. A nil clock uses wall time.
func NewMemory(clk clock.Clock, ttl time.Duration) *MemoryCache {
	if clk == nil {
		clk = clock.Real{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{clk: clk, ttl: ttl, items: make(map[string]Snapshot)}
}

// Get returns the snapshot for user when it is still fresh. Stale entries are evicted.
func (c *MemoryCache) Get(_ context.Context, user session.User) (Snapshot, bool, error) {
	key := keyFor(user)

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.items[key]
	if !ok {
		return Snapshot{}, false, nil
	}
	if !snap.Fresh(c.clk.Now(), c.ttl) {
		delete(c.items, key)
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Put stores snap, stamping it with the current time when Timestamp is zero.
func (c *MemoryCache) Put(_ context.Context, snap Snapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = c.clk.Now()
	}

	c.mu.Lock()
	c.items[keyFor(snap.User)] = snap
	c.mu.Unlock()
	return nil
}

// Delete removes the entry for user. Missing entries are not an error.
func (c *MemoryCache) Delete(_ context.Context, user session.User) error {
	c.mu.Lock()
	delete(c.items, keyFor(user))
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, stale ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
