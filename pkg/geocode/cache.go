package geocode

import "sync"

// cache is the per-run resolution cache, keyed by folded city name. The
// pipeline is sequential today, but the mutex keeps the invariant of one
// resolution per key if callers ever fan out.
type cache struct {
	mu      sync.Mutex
	entries map[string]Result
}

func newCache() *cache {
	return &cache{entries: make(map[string]Result)}
}

func (c *cache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *cache) put(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = r
}

func (c *cache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache) snapshot() map[string]Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Result, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
