// Package services hosts the pipeline's core logic: the dispatcher, the
// per-kind freshness cache it and the event workers share, the event
// workers themselves, and the supervisor that wires and runs them.
package services

import (
	"sync"
	"time"
)

// cacheKind distinguishes the four independently-thresholded caches the
// EventWorker pool shares.
type cacheKind int

const (
	cacheMAC cacheKind = iota
	cacheSSID
	cacheGeo
	cacheAssociation
)

// FreshnessCache is the short-term memory that suppresses redundant store
// writes. It is a single cross-worker cache, not a per-worker optimization:
// the admit decision and the cache update happen inside one critical
// section per key, which is what makes the "at most one write per
// threshold window" contract hold globally rather than per-goroutine.
type FreshnessCache struct {
	mu   sync.Mutex
	mac  map[any]time.Time
	ssid map[any]time.Time
	geo  map[any]time.Time
	assn map[any]time.Time
}

// NewFreshnessCache returns an empty cache.
func NewFreshnessCache() *FreshnessCache {
	return &FreshnessCache{
		mac:  make(map[any]time.Time),
		ssid: make(map[any]time.Time),
		geo:  make(map[any]time.Time),
		assn: make(map[any]time.Time),
	}
}

func (c *FreshnessCache) table(kind cacheKind) map[any]time.Time {
	switch kind {
	case cacheMAC:
		return c.mac
	case cacheSSID:
		return c.ssid
	case cacheGeo:
		return c.geo
	default:
		return c.assn
	}
}

// admit reports whether an event for key should reach the store: true iff
// the key is absent from the cache, or the gap since its last admitted
// timestamp strictly exceeds threshold. On admission the cache is updated
// to ts in the same critical section.
func (c *FreshnessCache) admit(kind cacheKind, key any, ts time.Time, threshold time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := c.table(kind)
	last, ok := table[key]
	if ok {
		delta := ts.Sub(last)
		if delta <= threshold {
			return false
		}
	}
	table[key] = ts
	return true
}

// Evict drops cache entries older than their kind's threshold. Run
// periodically (every 120s per spec.md §4.6) so memory is bounded
// regardless of address churn.
func (c *FreshnessCache) Evict(now time.Time, macTTL, ssidTTL, geoTTL, assnTTL time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evict := func(table map[any]time.Time, ttl time.Duration) {
		for k, ts := range table {
			if now.Sub(ts) >= ttl {
				delete(table, k)
			}
		}
	}
	evict(c.mac, macTTL)
	evict(c.ssid, ssidTTL)
	evict(c.geo, geoTTL)
	evict(c.assn, assnTTL)
}
