package reporting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportingMeta(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		meta := MetaFromContext(context.Background())
		require.Empty(t, meta.tags)
		require.Empty(t, meta.extras)
		require.True(t, meta.startedAt.IsZero())
	})

	t.Run("tags and extras accumulate", func(t *testing.T) {
		t.Parallel()
		ctx := AddTagsToContext(context.Background(), map[string]string{"port": "flag"})
		ctx = AddExtrasToContext(ctx, map[string]string{"rawCode": "en_US"})
		ctx = AddExtrasToContext(ctx, map[string]string{"resolvedKey": "us"})

		meta := MetaFromContext(ctx)
		assert.Equal(t, map[string]string{"port": "flag"}, meta.tags)
		assert.Equal(t, map[string]string{"rawCode": "en_US", "resolvedKey": "us"}, meta.extras)
	})

	t.Run("returned meta is a copy", func(t *testing.T) {
		t.Parallel()
		ctx := AddTagsToContext(context.Background(), map[string]string{"port": "flag"})

		meta := MetaFromContext(ctx)
		meta.tags["port"] = "mutated"
		meta.extras["injected"] = "value"

		fresh := MetaFromContext(ctx)
		assert.Equal(t, map[string]string{"port": "flag"}, fresh.tags)
		assert.Empty(t, fresh.extras)
	})
}
