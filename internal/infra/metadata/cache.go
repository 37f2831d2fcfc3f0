package metadata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"certichain/internal/usecase"
)

// Cache memoises successful fetches. Content addressing makes a document
// immutable, so the TTL only bounds memory.
type Cache struct {
	Next usecase.MetadataFetcher
	TTL  time.Duration
	Max  int

	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     json.RawMessage
	expiresAt time.Time
	hasExpiry bool
}

func NewCache(next usecase.MetadataFetcher, ttl time.Duration) *Cache {
	return &Cache{
		Next:    next,
		TTL:     ttl,
		Max:     1024,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Fetch(ctx context.Context, pointer string) (json.RawMessage, error) {
	key, err := Normalize(pointer)
	if err != nil {
		return c.Next.Fetch(ctx, pointer)
	}
	if doc, ok := c.get(key); ok {
		return doc, nil
	}
	doc, err := c.Next.Fetch(ctx, pointer)
	if err != nil || doc == nil {
		return doc, err
	}
	c.put(key, doc)
	return doc, nil
}

func (c *Cache) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *Cache) get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if entry.hasExpiry && c.clock().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *Cache) put(key string, value json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	if c.Max > 0 && len(c.entries) >= c.Max {
		c.evictLocked()
	}
	entry := cacheEntry{value: value}
	if c.TTL > 0 {
		entry.hasExpiry = true
		entry.expiresAt = c.clock().Add(c.TTL)
	}
	c.entries[key] = entry
}

// evictLocked drops expired entries, or an arbitrary one when none expired.
func (c *Cache) evictLocked() {
	now := c.clock()
	for k, e := range c.entries {
		if e.hasExpiry && now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.Max {
		return
	}
	for k := range c.entries {
		delete(c.entries, k)
		return
	}
}

var _ usecase.MetadataFetcher = (*Cache)(nil)
