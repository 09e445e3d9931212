package cache

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPayload marks a load that completed without producing bytes. Such
// results are never cached; the key stays eligible for another attempt.
var ErrNoPayload = errors.New("no payload for key")

// Loader produces the raw payload for a canonical key. Implementations must
// be safe to invoke concurrently for distinct keys.
type Loader func(ctx context.Context, key string) ([]byte, error)

// GetOrLoad returns the cached payload for key, or invokes load exactly once
// to produce it. Concurrent calls for the same key share a single load and
// observe the identical result; calls for distinct keys proceed
// independently. Successful loads are inserted into the cache before the
// shared flight is forgotten, so later callers either hit the cache or start
// a fresh load episode. Failed loads are never cached.
func (c *FlagCache) GetOrLoad(ctx context.Context, key string, load Loader) ([]byte, error) {
	if payload, ok := c.lookup(key); ok {
		metrics.hits.Add(ctx, 1)
		return payload, nil
	}
	metrics.misses.Add(ctx, 1)

	result, err, _ := c.flights.Do(key, func() (interface{}, error) {
		// A caller can lose the race between its lookup and joining the
		// flight: the previous flight may have completed and inserted in
		// between. Re-check before loading.
		if payload, ok := c.lookup(key); ok {
			return payload, nil
		}

		payload, err := c.load(ctx, key, load)
		if err != nil {
			metrics.loadFailures.Add(ctx, 1)
			return nil, fmt.Errorf("failed to load payload: %w", err)
		}
		if len(payload) == 0 {
			metrics.loadFailures.Add(ctx, 1)
			return nil, fmt.Errorf("%w: %s", ErrNoPayload, key)
		}

		c.insert(key, payload)

		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	payload, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for key %s", result, key)
	}
	return payload, nil
}

func (c *FlagCache) load(ctx context.Context, key string, load Loader) ([]byte, error) {
	metrics.loads.Add(ctx, 1)

	c.lock.Lock()
	override := c.override
	c.lock.Unlock()

	if override != nil {
		return override(ctx, key)
	}
	return load(ctx, key)
}

// SetLoadOverride replaces the loader used by every GetOrLoad call until
// ResetLoadOverride is called. Only for deterministic tests.
func (c *FlagCache) SetLoadOverride(load Loader) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.override = load
}

// ResetLoadOverride restores the loaders passed to GetOrLoad.
func (c *FlagCache) ResetLoadOverride() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.override = nil
}
