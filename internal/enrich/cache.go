package enrich

// Cache deduplicates identical enrichment requests within one job run. It is
// keyed by normalized word plus lowercased meaning and is owned by the
// orchestrator's stack frame — never shared across jobs. Not safe for
// concurrent use; batches are processed sequentially.
type Cache struct {
	m map[string]*Payload
}

// NewCache creates an empty per-job cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]*Payload)}
}

// Get returns the cached payload for key, if any.
func (c *Cache) Get(key string) (*Payload, bool) {
	p, ok := c.m[key]
	return p, ok
}

// Put stores a payload under key. Nil payloads are cached too, so a known
// empty answer is not re-requested.
func (c *Cache) Put(key string, p *Payload) {
	c.m[key] = p
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return len(c.m)
}
