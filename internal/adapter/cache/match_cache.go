// Package cache holds the in-process match result cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"xcreator/internal/domain"
)

// MatchCache is an LRU cache of match responses with a TTL. Every store write
// bumps the generation, which drops all entries.
type MatchCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	gen     uint64
	now     func() time.Time
}

type cacheEntry struct {
	resp      *domain.MatchResponse
	timestamp time.Time
	gen       uint64
}

// NewMatchCache creates a cache. maxSize <= 0 returns nil, which disables caching.
func NewMatchCache(maxSize int, ttl time.Duration) *MatchCache {
	if maxSize <= 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MatchCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key identifies a request. Handles compare case-insensitively, with or
// without a leading @.
func Key(req domain.MatchRequest) string {
	handle := strings.TrimPrefix(strings.TrimSpace(req.Handle), "@")

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%t", strings.ToLower(handle), req.Category, req.TopK, req.Rerank)
	if req.MinFollowers != nil {
		fmt.Fprintf(&b, "|min=%d", *req.MinFollowers)
	}
	if req.MaxFollowers != nil {
		fmt.Fprintf(&b, "|max=%d", *req.MaxFollowers)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:16])
}

// Get returns a cached response. Safe on a nil cache.
func (c *MatchCache) Get(req domain.MatchRequest) (*domain.MatchResponse, bool) {
	if c == nil {
		return nil, false
	}
	key := Key(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if c.now().Sub(entry.timestamp) > c.ttl || entry.gen != c.gen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.resp, true
}

// Put stores resp, evicting the least recently used entry when full.
func (c *MatchCache) Put(req domain.MatchRequest, resp *domain.MatchResponse) {
	if c == nil || resp == nil {
		return
	}
	key := Key(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{resp: resp, timestamp: c.now(), gen: c.gen}
	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry.
func (c *MatchCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.gen++
}

// Size returns the number of live entries.
func (c *MatchCache) Size() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MatchCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *MatchCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *MatchCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
