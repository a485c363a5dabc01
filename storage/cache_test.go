package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultCache(t *testing.T) {
	var nilCache *ResultCache
	nilCache.Set([]byte("k"), []byte("v"))
	_, found := nilCache.Get([]byte("k"))
	assert.False(t, found)
	assert.Nil(t, NewResultCache(0, time.Minute))

	c := NewResultCache(1, 0)
	key := Fingerprint("gs://b/gt.lvol", "gs://b/pred.lvol", "")
	_, found = c.Get(key)
	assert.False(t, found)

	c.Set(key, []byte("result"))
	value, found := c.Get(key)
	assert.True(t, found)
	assert.Equal(t, []byte("result"), value)

	entries, hitRate := c.Stats()
	assert.EqualValues(t, 1, entries)
	assert.InDelta(t, 0.5, hitRate, 1e-9)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("a", "b"), Fingerprint("a", "b"))
	assert.NotEqual(t, Fingerprint("ab", ""), Fingerprint("a", "b"))
	assert.Len(t, Fingerprint(), 32)
}
