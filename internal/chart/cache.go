package chart

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache holds rendered images keyed by request.
type Cache = ttlcache.Cache[string, []byte]

// NewCache returns a cache whose entries expire after ttl. Once capacity is
// reached the least recently used entry is evicted.
func NewCache(ttl time.Duration, capacity uint64) *Cache {
	return ttlcache.New(
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithCapacity[string, []byte](capacity),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
}
