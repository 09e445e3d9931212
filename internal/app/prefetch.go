package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/adapters/cache"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/codes"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/logging"
)

// PrefetchFlags warms the cache for a batch of raw codes. Loads only, no
// decoding. Best-effort: a failed key is simply left uncached.
type PrefetchFlags func(ctx context.Context, rawCodes []string, maxConcurrency int)

const (
	minPrefetchConcurrency = 1
	maxPrefetchConcurrency = 24
)

func BuildPrefetchFlags(flagCache *cache.FlagCache, load cache.Loader) PrefetchFlags {
	return func(ctx context.Context, rawCodes []string, maxConcurrency int) {
		logger := logging.FromContext(ctx)

		// Distinct raw spellings frequently resolve to the same key.
		keys := make(map[string]struct{}, len(rawCodes))
		for _, rawCode := range rawCodes {
			keys[codes.Resolve(rawCode)] = struct{}{}
		}

		if maxConcurrency < minPrefetchConcurrency {
			maxConcurrency = minPrefetchConcurrency
		}
		if maxConcurrency > maxPrefetchConcurrency {
			maxConcurrency = maxPrefetchConcurrency
		}

		group := errgroup.Group{}
		group.SetLimit(maxConcurrency)
		for key := range keys {
			group.Go(func() error {
				_, err := flagCache.GetOrLoad(ctx, key, load)
				if err != nil {
					logger.InfoContext(ctx, "Failed to prefetch flag", "key", key, "error", err.Error())
				}
				return nil
			})
		}
		// Errors are swallowed per key; Wait only synchronizes.
		_ = group.Wait()

		logger.InfoContext(ctx, "Prefetched flags", "keys", len(keys), "maxConcurrency", maxConcurrency)
	}
}
