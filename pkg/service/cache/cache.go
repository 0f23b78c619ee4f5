package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Cache is a capacity-bounded key-value store with per-entry TTL expiry and
// least-recently-used eviction. A miss never fails: callers always have a
// fallback compute path. Concurrent misses for the same key may each
// recompute; the cache does not de-duplicate in-flight loads.
type Cache struct {
	capacity   int
	defaultTTL time.Duration

	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List // front = most recently used
	now       func() time.Time
	hits      int64
	misses    int64
	evictions int64
}

// Stats is a point-in-time view of cache effectiveness counters
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
}

type entry struct {
	key        string
	value      any
	insertedAt time.Time
	expiresAt  time.Time
}

// New creates a Cache holding at most capacity entries, using defaultTTL when
// Set is called with a non-positive TTL.
func New(capacity int, defaultTTL time.Duration) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Key builds a deterministic cache key from a prefix and the semantic parts
// of a request. Equal parts always produce equal keys.
func Key(prefix string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return prefix + ":" + hex.EncodeToString(h[:])
}

// Get returns the cached value for key. An entry past its TTL is treated as
// a miss and removed, even if still physically present.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := elem.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Set stores value under key. At capacity the least-recently-used entry is
// evicted first. ttl <= 0 uses the cache's default TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.insertedAt = now
		e.expiresAt = now.Add(ttl)
		c.order.MoveToFront(elem)
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
			c.evictions++
		}
	}

	elem := c.order.PushFront(&entry{
		key:        key,
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	})
	c.entries[key] = elem
}

// InvalidateAll clears every entry. Used when the knowledge base is reloaded,
// since cached classification and retrieval results may reference stale
// documents.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of physically present entries, including any whose
// TTL has elapsed but which have not been touched since.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current effectiveness counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
		Capacity:  c.capacity,
	}
}
