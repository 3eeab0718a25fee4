// Package httpcache caches upstream response bodies with thundering-herd
// protection.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
)

// Stats tracks cache hit/miss counts.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Cache wraps sfcache for upstream response caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewNull creates a Cache that never stores anything.
func NewNull() *Cache {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte]())
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}
	return &Cache{TieredCache: tc}
}

// NewWithPath creates a Cache persisted under cachePath. A zero ttl yields a
// pass-through cache.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if ttl <= 0 {
		return NewNull(), nil
	}
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte]("xcreator", cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Stats returns hit/miss counters since creation.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Fetch returns the cached body for key or calls fetch once, even under
// concurrent callers. Errors are never cached. A nil or pass-through cache
// calls fetch directly.
func (c *Cache) Fetch(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil || c.ttl <= 0 {
		return fetch(ctx)
	}

	var fetched bool
	data, err := c.GetSet(ctx, key, func(ctx context.Context) ([]byte, error) {
		fetched = true
		return fetch(ctx)
	}, c.ttl)
	if fetched {
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}
	return data, err
}

// Key hashes the parts into a filesystem-safe cache key.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
