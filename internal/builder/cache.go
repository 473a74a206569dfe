package builder

import (
	"context"
	"fmt"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/mcpforge/internal/syntax"
	"github.com/zeebo/xxh3"
)

// DefaultParseCacheSize is the number of parsed modules kept in memory.
const DefaultParseCacheSize = 1024

// ParseCache is a syntax.Provider that memoizes parse results by content hash.
// Cached modules are shared between callers and must not be mutated.
type ParseCache struct {
	provider syntax.Provider
	cache    otter.Cache[uint64, *syntax.Module]
}

// NewParseCache wraps provider with a cache holding up to capacity modules.
func NewParseCache(provider syntax.Provider, capacity int) (*ParseCache, error) {
	if capacity <= 0 {
		capacity = DefaultParseCacheSize
	}
	cache, err := otter.MustBuilder[uint64, *syntax.Module](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build parse cache: %w", err)
	}
	return &ParseCache{provider: provider, cache: cache}, nil
}

// Parse returns the cached module for source, parsing on a miss.
// Parse errors are not cached.
func (c *ParseCache) Parse(ctx context.Context, source []byte) (*syntax.Module, error) {
	key := xxh3.Hash(source)
	if mod, ok := c.cache.Get(key); ok {
		return mod, nil
	}

	mod, err := c.provider.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, mod)
	return mod, nil
}

// Hits returns the number of cache hits since creation.
func (c *ParseCache) Hits() int64 {
	return c.cache.Stats().Hits()
}

// Misses returns the number of cache misses since creation.
func (c *ParseCache) Misses() int64 {
	return c.cache.Stats().Misses()
}

// Close releases the cache.
func (c *ParseCache) Close() {
	c.cache.Close()
}
