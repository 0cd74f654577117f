// Package tokens keeps the set of API keys and their per-key rate limits.
package tokens

import "sync"

// Cache is the in-memory view of the token table.
type Cache struct {
	mu sync.RWMutex
	m  map[string]int
}

func NewCache() *Cache {
	return &Cache{}
}

// Replace swaps the whole token set.
func (c *Cache) Replace(m map[string]int) {
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	c.mu.Lock()
	c.m = cp
	c.mu.Unlock()
}

// Ready returns true once the cache has been loaded at least once.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m != nil
}

// Valid checks whether token is known.
func (c *Cache) Valid(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.m[token]
	return ok
}

// RateLimit returns the configured requests per interval for token. Unknown
// tokens and a zero limit both disable the per-token limiter.
func (c *Cache) RateLimit(token string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[token]
}
