package translation

import "sync"

// Cache holds resolved translations keyed by term code for the life of the
// process.
// TODO: bound with an LRU keyed by term code if codebooks grow past tens of
// thousands of terms.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Result
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Result)}
}

// Get returns the cached translation for key.
func (c *Cache) Get(key string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// Put stores r under key, replacing any earlier entry.
func (c *Cache) Put(key string, r *Result) {
	c.mu.Lock()
	c.entries[key] = r
	c.mu.Unlock()
}

// Size returns the number of cached translations.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the cache and returns how many entries were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*Result)
	return n
}
