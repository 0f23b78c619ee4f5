package cache

import "time"

// SetNowFunc replaces the cache's clock for tests
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
