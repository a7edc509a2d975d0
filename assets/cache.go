package assets

import "sync"

// Cache keeps raw asset bytes by path so re-selecting a part skips the fetch.
type Cache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewCache() *Cache {
	return &Cache{items: make(map[string][]byte)}
}

func (c *Cache) Get(path string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.items[cleanAssetPath(path)]
	return b, ok
}

func (c *Cache) Put(path string, data []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items[cleanAssetPath(path)] = data
	c.mu.Unlock()
}

// Invalidate drops a cached entry; the next load goes back to the source.
func (c *Cache) Invalidate(path string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, cleanAssetPath(path))
	c.mu.Unlock()
}
