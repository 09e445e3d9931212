package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/adapters/cache"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/adapters/imagedecoder"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/app"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/codes"
	e "github.com/ddeerrrriicckk/CircleFlagsKit/internal/errors"
	"github.com/stretchr/testify/require"
)

var errAssetMissing = errors.New("asset missing")

func newTestCache(t *testing.T) *cache.FlagCache {
	t.Helper()
	flagCache, err := cache.New(cache.Config{
		MaxEntries:   64,
		MaxCostBytes: 1 << 20,
	})
	require.NoError(t, err)
	return flagCache
}

// bundleLoader serves payloads for the given keys and fails everything else.
func bundleLoader(t *testing.T, payloads map[string][]byte) cache.Loader {
	return func(ctx context.Context, key string) ([]byte, error) {
		t.Helper()
		payload, ok := payloads[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errAssetMissing, key)
		}
		return payload, nil
	}
}

func pngPayload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0x30, G: 0x60, B: 0x90, A: 0xff})
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestBuildGetFlagData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	usPayload := []byte("us-flag-bytes")
	fallbackPayload := []byte("fallback-flag-bytes")

	t.Run("resolved key is served directly", func(t *testing.T) {
		t.Parallel()
		getFlagData := app.BuildGetFlagData(newTestCache(t), bundleLoader(t, map[string][]byte{
			"us": usPayload,
			"xx": fallbackPayload,
		}))

		payload, key, err := getFlagData(ctx, "US")
		require.NoError(t, err)
		require.Equal(t, "us", key)
		require.Equal(t, usPayload, payload)
	})

	t.Run("unknown key falls back", func(t *testing.T) {
		t.Parallel()
		getFlagData := app.BuildGetFlagData(newTestCache(t), bundleLoader(t, map[string][]byte{
			"xx": fallbackPayload,
		}))

		payload, key, err := getFlagData(ctx, "zz")
		require.NoError(t, err)
		require.Equal(t, codes.FallbackKey, key)
		require.Equal(t, fallbackPayload, payload)
	})

	t.Run("unresolvable input skips the primary tier", func(t *testing.T) {
		t.Parallel()
		loaderCalls := 0
		flagCache := newTestCache(t)
		getFlagData := app.BuildGetFlagData(flagCache, func(ctx context.Context, key string) ([]byte, error) {
			loaderCalls++
			require.Equal(t, codes.FallbackKey, key)
			return fallbackPayload, nil
		})

		payload, key, err := getFlagData(ctx, "not a country")
		require.NoError(t, err)
		require.Equal(t, codes.FallbackKey, key)
		require.Equal(t, fallbackPayload, payload)
		require.Equal(t, 1, loaderCalls)
	})

	t.Run("missing fallback asset is a server error", func(t *testing.T) {
		t.Parallel()
		getFlagData := app.BuildGetFlagData(newTestCache(t), bundleLoader(t, map[string][]byte{}))

		payload, key, err := getFlagData(ctx, "us")
		require.ErrorIs(t, err, e.APIServerError)
		require.ErrorIs(t, err, errAssetMissing)
		require.Nil(t, payload)
		require.Empty(t, key)
	})

	t.Run("fallback result is cached across calls", func(t *testing.T) {
		t.Parallel()
		loaderCalls := map[string]int{}
		flagCache := newTestCache(t)
		getFlagData := app.BuildGetFlagData(flagCache, func(ctx context.Context, key string) ([]byte, error) {
			loaderCalls[key]++
			if key == codes.FallbackKey {
				return fallbackPayload, nil
			}
			return nil, errAssetMissing
		})

		for range 3 {
			payload, key, err := getFlagData(ctx, "zz")
			require.NoError(t, err)
			require.Equal(t, codes.FallbackKey, key)
			require.Equal(t, fallbackPayload, payload)
		}

		// The fallback payload is cached after the first call. The failing
		// primary key is retried every time since failures are never cached.
		require.Equal(t, 1, loaderCalls[codes.FallbackKey])
		require.Equal(t, 3, loaderCalls["zz"])
	})
}

func TestBuildResolveFlagImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	validPayload := pngPayload(t)

	t.Run("resolved key decodes", func(t *testing.T) {
		t.Parallel()
		resolveFlagImage := app.BuildResolveFlagImage(
			newTestCache(t),
			bundleLoader(t, map[string][]byte{
				"no": validPayload,
				"xx": validPayload,
			}),
			imagedecoder.DecodePNG,
		)

		img, err := resolveFlagImage(ctx, "NO")
		require.NoError(t, err)
		require.NotNil(t, img)
	})

	t.Run("decode failure on the resolved key falls back", func(t *testing.T) {
		t.Parallel()
		decoded := []string{}
		resolveFlagImage := app.BuildResolveFlagImage(
			newTestCache(t),
			bundleLoader(t, map[string][]byte{
				"no": []byte("corrupt"),
				"xx": validPayload,
			}),
			func(payload []byte) (image.Image, error) {
				if bytes.Equal(payload, validPayload) {
					decoded = append(decoded, "fallback")
					return png.Decode(bytes.NewReader(payload))
				}
				decoded = append(decoded, "primary")
				return nil, errors.New("corrupt payload")
			},
		)

		img, err := resolveFlagImage(ctx, "no")
		require.NoError(t, err)
		require.NotNil(t, img)
		require.Equal(t, []string{"primary", "fallback"}, decoded)
	})

	t.Run("decode failure on the fallback key is a server error", func(t *testing.T) {
		t.Parallel()
		resolveFlagImage := app.BuildResolveFlagImage(
			newTestCache(t),
			bundleLoader(t, map[string][]byte{
				"xx": []byte("corrupt"),
			}),
			func(payload []byte) (image.Image, error) {
				return nil, errors.New("corrupt payload")
			},
		)

		img, err := resolveFlagImage(ctx, "zz")
		require.ErrorIs(t, err, e.APIServerError)
		require.Nil(t, img)
	})
}
