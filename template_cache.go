package ygggo_formsql

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// templateCache memoizes Compile by template text. Submissions of the same form
// synthesize the same template, so the scan runs once per distinct form shape.
// Cached statements are shared and must not be modified.
type templateCache struct {
	lru    *lru.Cache[string, CompiledStatement]
	hits   uint64
	misses uint64
}

func newTemplateCache(capacity int) (*templateCache, error) {
	if capacity <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, CompiledStatement](capacity)
	if err != nil {
		return nil, err
	}
	return &templateCache{lru: c}, nil
}

// getOrCompile returns the compiled form of template and whether it came from the cache.
func (c *templateCache) getOrCompile(template string) (CompiledStatement, bool) {
	if c == nil {
		return Compile(template), false
	}
	if cs, ok := c.lru.Get(template); ok {
		atomic.AddUint64(&c.hits, 1)
		return cs, true
	}
	atomic.AddUint64(&c.misses, 1)
	cs := Compile(template)
	c.lru.Add(template, cs)
	return cs, false
}

func (c *templateCache) stats() (hits, misses uint64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), c.lru.Len()
}

// TemplateCacheStats reports hits, misses and current size of the compile cache.
type TemplateCacheStats struct {
	Hits   uint64
	Misses uint64
	Size   int
}
