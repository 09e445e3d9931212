package app

import (
	"context"
	"fmt"
	"image"

	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/adapters/cache"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/codes"
	e "github.com/ddeerrrriicckk/CircleFlagsKit/internal/errors"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/logging"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/reporting"
)

// GetFlagData resolves a raw code to the flag payload, returning the bytes
// and the canonical key they were served under.
type GetFlagData func(ctx context.Context, rawCode string) ([]byte, string, error)

// ResolveFlagImage resolves a raw code to a decoded flag image.
type ResolveFlagImage func(ctx context.Context, rawCode string) (image.Image, error)

// Decoder turns a flag payload into a displayable image.
type Decoder func(payload []byte) (image.Image, error)

// BuildGetFlagData builds the byte tier of the resolution pipeline: resolve
// the input, try the resolved key, then fall back to the reserved key. An
// error is only returned when both tiers fail, which means the bundle is
// missing its reserved fallback entry.
func BuildGetFlagData(flagCache *cache.FlagCache, load cache.Loader) GetFlagData {
	return func(ctx context.Context, rawCode string) ([]byte, string, error) {
		logger := logging.FromContext(ctx)

		key := codes.Resolve(rawCode)
		if key != codes.FallbackKey {
			payload, err := flagCache.GetOrLoad(ctx, key, load)
			if err == nil {
				return payload, key, nil
			}
			logger.InfoContext(ctx, "Serving fallback flag", "key", key, "reason", err.Error())
		}

		payload, err := flagCache.GetOrLoad(ctx, codes.FallbackKey, load)
		if err != nil {
			// The reserved fallback resource is expected to always load.
			err := fmt.Errorf("%w: failed to load fallback flag %q for rawCode %q: %w", e.APIServerError, codes.FallbackKey, rawCode, err)
			reporting.Report(ctx, err, map[string]string{"rawCode": rawCode, "resolvedKey": key})
			return nil, "", err
		}

		return payload, codes.FallbackKey, nil
	}
}

// BuildResolveFlagImage builds the full resolution pipeline, including the
// decode step. A decode failure on the resolved key is treated like a load
// miss: the pipeline falls through to the fallback key.
func BuildResolveFlagImage(flagCache *cache.FlagCache, load cache.Loader, decode Decoder) ResolveFlagImage {
	return func(ctx context.Context, rawCode string) (image.Image, error) {
		logger := logging.FromContext(ctx)

		key := codes.Resolve(rawCode)
		if key != codes.FallbackKey {
			payload, err := flagCache.GetOrLoad(ctx, key, load)
			if err == nil {
				decoded, err := decode(payload)
				if err == nil {
					return decoded, nil
				}
				logger.InfoContext(ctx, "Serving fallback flag", "key", key, "reason", err.Error())
			} else {
				logger.InfoContext(ctx, "Serving fallback flag", "key", key, "reason", err.Error())
			}
		}

		payload, err := flagCache.GetOrLoad(ctx, codes.FallbackKey, load)
		if err != nil {
			err := fmt.Errorf("%w: failed to load fallback flag %q for rawCode %q: %w", e.APIServerError, codes.FallbackKey, rawCode, err)
			reporting.Report(ctx, err, map[string]string{"rawCode": rawCode, "resolvedKey": key})
			return nil, err
		}

		decoded, err := decode(payload)
		if err != nil {
			err := fmt.Errorf("%w: failed to decode fallback flag %q for rawCode %q: %w", e.APIServerError, codes.FallbackKey, rawCode, err)
			reporting.Report(ctx, err, map[string]string{"rawCode": rawCode, "resolvedKey": key})
			return nil, err
		}

		return decoded, nil
	}
}
