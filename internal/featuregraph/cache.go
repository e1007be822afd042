package featuregraph

import "sync"

type cacheKey struct {
	repoRoot string
	mode     string
}

// Cache is a single-owner, mutex-protected map of (repo_root, mode) to the
// graph last computed for it. Readers may share a cached graph; writers
// (the generator/executor, after on-disk mutation) replace it atomically by
// calling Invalidate and letting the next Get recompute.
type Cache struct {
	mu   sync.Mutex
	data map[cacheKey]*Graph
}

// NewCache returns an empty graph cache.
func NewCache() *Cache {
	return &Cache{data: map[cacheKey]*Graph{}}
}

// Get returns the cached graph for (repoRoot, mode), scanning and populating
// the cache on a miss.
func (c *Cache) Get(repoRoot, mode string) (*Graph, error) {
	key := cacheKey{repoRoot: repoRoot, mode: mode}

	c.mu.Lock()
	if g, ok := c.data[key]; ok {
		c.mu.Unlock()
		return g, nil
	}
	c.mu.Unlock()

	g, err := Scan(repoRoot)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.data[key] = g
	c.mu.Unlock()
	return g, nil
}

// Invalidate drops every cached entry for repoRoot, across all modes.
func (c *Cache) Invalidate(repoRoot string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.data {
		if key.repoRoot == repoRoot {
			delete(c.data, key)
		}
	}
}
