package storage

import (
	"crypto/sha256"
	"time"

	"github.com/janelia-flyem/segeval/core"

	"github.com/coocood/freecache"
)

// ResultCache holds encoded evaluation results keyed by a fingerprint of the
// request.  A nil *ResultCache never hits.
type ResultCache struct {
	cache *freecache.Cache
	ttl   int // seconds, 0 for no expiration
}

// NewResultCache returns a cache of roughly sizeMB megabytes, or nil if sizeMB <= 0.
func NewResultCache(sizeMB int, ttl time.Duration) *ResultCache {
	if sizeMB <= 0 {
		return nil
	}
	c := &ResultCache{
		cache: freecache.NewCache(sizeMB * 1000000),
		ttl:   int(ttl / time.Second),
	}
	core.Infof("Created freecache of ~ %d MB for evaluation results.\n", sizeMB)
	return c
}

// Fingerprint returns a cache key for the ordered request parts.
func Fingerprint(parts ...string) []byte {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}

// Get returns the cached value for a key.
func (c *ResultCache) Get(key []byte) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	value, err := c.cache.Get(key)
	if err != nil {
		if err != freecache.ErrNotFound {
			core.Errorf("result cache get: %v\n", err)
		}
		return nil, false
	}
	return value, true
}

// Set stores a value.  Values too large for the cache are not stored.
func (c *ResultCache) Set(key, value []byte) {
	if c == nil {
		return
	}
	if err := c.cache.Set(key, value, c.ttl); err != nil {
		core.Warningf("unable to cache %s result: %v\n", core.Bytes(uint64(len(value))), err)
	}
}

// Stats returns the number of entries and the hit rate.
func (c *ResultCache) Stats() (entries int64, hitRate float64) {
	if c == nil {
		return 0, 0
	}
	return c.cache.EntryCount(), c.cache.HitRate()
}
