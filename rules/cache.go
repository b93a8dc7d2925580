package rules

import "sync"

// ProgramCache stores compiled programs keyed by engine and expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryCache is an unbounded ProgramCache. Option tables hold a fixed set of
// expressions, so entries are never evicted.
type MemoryCache struct {
	entries sync.Map
}

// NewMemoryCache returns an empty process-local program cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

func (c *MemoryCache) Set(key string, value any) {
	c.entries.Store(key, value)
}

func cacheKey(engine, expression string) string {
	return engine + "\x00" + expression
}
