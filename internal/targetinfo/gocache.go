package targetinfo

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheTTL bounds how long a TargetInfo entry survives, mirroring
// internal/nightevents.Manager's cacheTTL: long enough to outlive a
// single scheduling request, short enough to bound memory across
// unrelated ones (spec.md §5: "write-once-per-key... cache adapter must
// tolerate last-writer-wins").
const goCacheTTL = 2 * time.Hour

// GoCache is the default Cache implementation (spec.md §6's "Target-info
// cache" adapter), backed by github.com/patrickmn/go-cache — the same
// in-memory memoizing cache internal/nightevents.Manager uses.
type GoCache struct {
	cache *gocache.Cache
}

// NewGoCache builds an empty, process-wide TargetInfo cache.
func NewGoCache() *GoCache {
	return &GoCache{cache: gocache.New(goCacheTTL, goCacheTTL*2)}
}

// Get implements Cache.
func (c *GoCache) Get(key string) (*TargetInfo, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	ti, ok := v.(*TargetInfo)
	return ti, ok
}

// Set implements Cache.
func (c *GoCache) Set(key string, ti *TargetInfo) {
	c.cache.SetDefault(key, ti)
}
