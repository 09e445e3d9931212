package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidConfig = errors.New("invalid cache config")

// Config bounds the cache. Both limits must be at least 1.
type Config struct {
	// MaxEntries is the maximum number of cached payloads.
	MaxEntries int
	// MaxCostBytes is the maximum aggregate payload size in bytes.
	MaxCostBytes int
}

func (c Config) validate() error {
	if c.MaxEntries < 1 {
		return fmt.Errorf("%w: MaxEntries must be >= 1, got %d", ErrInvalidConfig, c.MaxEntries)
	}
	if c.MaxCostBytes < 1 {
		return fmt.Errorf("%w: MaxCostBytes must be >= 1, got %d", ErrInvalidConfig, c.MaxCostBytes)
	}
	return nil
}

// FlagCache is a bounded key->payload store with single-flight loading.
//
// Cached payloads are shared with callers as read-only views and must not be
// mutated. The lock only guards the bookkeeping maps; loads run outside it so
// distinct keys never block on one another's I/O.
type FlagCache struct {
	lock     sync.Mutex
	config   Config
	entries  *simplelru.LRU[string, []byte]
	cost     int
	clearing bool
	override Loader

	flights singleflight.Group
}

func New(config Config) (*FlagCache, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	flagCache := &FlagCache{config: config}

	// The eviction callback runs synchronously under our lock.
	entries, err := simplelru.NewLRU[string, []byte](config.MaxEntries, flagCache.onEvicted)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	flagCache.entries = entries

	registerOccupancyGauges(flagCache)

	return flagCache, nil
}

// Configure replaces the limits wholesale and evicts entries that no longer
// fit. In-flight loads are not cancelled.
func (c *FlagCache) Configure(config Config) error {
	if err := config.validate(); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.config = config
	c.entries.Resize(config.MaxEntries)
	c.evictOverCost()

	return nil
}

// Clear drops all cached payloads. Loads already in flight still complete and
// their callers still receive results; whether those results end up cached
// depends on how the clear raced against their insertion.
func (c *FlagCache) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.clearing = true
	c.entries.Purge()
	c.clearing = false
	c.cost = 0
}

// Len returns the number of cached payloads.
func (c *FlagCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.entries.Len()
}

// CostBytes returns the aggregate size of the cached payloads.
func (c *FlagCache) CostBytes() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.cost
}

func (c *FlagCache) lookup(key string) ([]byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.entries.Get(key)
}

func (c *FlagCache) insert(key string, payload []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	// Single-flight makes same-key re-insertion rare, but a Clear racing a
	// load can produce one. Settle the old cost before re-adding.
	if old, ok := c.entries.Peek(key); ok {
		c.cost -= len(old)
	}

	c.entries.Add(key, payload)
	c.cost += len(payload)
	c.evictOverCost()
}

// evictOverCost drops least recently used entries until the aggregate cost
// fits the budget. A payload larger than the whole budget evicts itself.
// Must be called with the lock held.
func (c *FlagCache) evictOverCost() {
	for c.cost > c.config.MaxCostBytes && c.entries.Len() > 0 {
		c.entries.RemoveOldest()
	}
}

// onEvicted is invoked by the LRU under our lock. The eviction counter only
// tracks bound-driven evictions (count, cost, or a shrinking Configure);
// Purge also lands here, so Clear sets c.clearing to keep deliberate drops
// out of the metric.
func (c *FlagCache) onEvicted(key string, payload []byte) {
	c.cost -= len(payload)
	if !c.clearing {
		metrics.evictions.Add(context.Background(), 1)
	}
}
