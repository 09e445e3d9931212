package assets

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed flags/*.png
var embeddedFlags embed.FS

// ErrUnknownKey marks a canonical key with no resource in the bundle.
var ErrUnknownKey = errors.New("no flag resource for key")

// Bundle is the embedded flag resource store. Files are named
// "<2-letter-code>.png"; the reserved fallback entry is required to exist.
type Bundle struct {
	flags fs.FS
}

func NewBundle() *Bundle {
	flags, err := fs.Sub(embeddedFlags, "flags")
	if err != nil {
		panic(fmt.Errorf("failed to open embedded flag bundle: %w", err))
	}
	return &Bundle{flags: flags}
}

// NewBundleFromFS points the bundle at an alternate tree of <key>.png files,
// for tests and tooling.
func NewBundleFromFS(flags fs.FS) *Bundle {
	return &Bundle{flags: flags}
}

// Load returns the raw PNG payload for a canonical key.
func (b *Bundle) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := fs.ReadFile(b.flags, fmt.Sprintf("%s.png", key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return payload, nil
}

// Has reports whether the bundle contains a resource for the key.
func (b *Bundle) Has(key string) bool {
	info, err := fs.Stat(b.flags, fmt.Sprintf("%s.png", key))
	return err == nil && !info.IsDir()
}

// Keys returns every key in the bundle, sorted. Keys are reported as found
// on disk; canonicalization is the caller's concern.
func (b *Bundle) Keys() ([]string, error) {
	entries, err := fs.ReadDir(b.flags, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read flag bundle: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(entry.Name(), ".png"))
	}
	sort.Strings(keys)

	return keys, nil
}
