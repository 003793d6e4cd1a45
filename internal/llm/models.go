package llm

import (
	"time"
)

// ModelsCache memoizes the provider's model list with an expiry
// timestamp. It is constructed once per process and handed to whoever
// needs it, so there is no hidden module-level state. Import runs are
// single-threaded, so no locking is needed (last writer wins).
type ModelsCache struct {
	expiry time.Time
	models []string
	ttl    time.Duration
}

// NewModelsCache creates a cache with the given TTL (15 minutes when
// zero).
func NewModelsCache(ttl time.Duration) *ModelsCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &ModelsCache{ttl: ttl}
}

// Get returns the cached list, or false when the cache is empty or
// past its expiry.
func (c *ModelsCache) Get() ([]string, bool) {
	if c.models == nil || time.Now().After(c.expiry) {
		return nil, false
	}
	return c.models, true
}

// Set stores a fresh list and advances the expiry.
func (c *ModelsCache) Set(models []string) {
	c.models = models
	c.expiry = time.Now().Add(c.ttl)
}
