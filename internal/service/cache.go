package service

import (
	"sync"
	"time"

	"github.com/stockfolio/forex-service/internal/models"
)

// RateCache keeps the latest entry per base currency. Staleness is decided at
// read time; entries are never evicted.
type RateCache struct {
	ttl time.Duration
	now func() time.Time

	mutex   sync.RWMutex
	entries map[string]models.CacheEntry
}

// NewRateCache creates an empty cache whose entries stay fresh for ttl.
func NewRateCache(ttl time.Duration) *RateCache {
	return &RateCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]models.CacheEntry),
	}
}

// WithClock replaces the time source
func (cache *RateCache) WithClock(now func() time.Time) *RateCache {
	cache.now = now
	return cache
}

// TTL returns the freshness window.
func (cache *RateCache) TTL() time.Duration {
	return cache.ttl
}

// Now reads the cache clock.
func (cache *RateCache) Now() time.Time {
	return cache.now()
}

// Get returns the entry for base only while it is younger than the TTL.
func (cache *RateCache) Get(base string) (models.CacheEntry, bool) {
	entry, found := cache.Peek(base)
	if !found || !cache.IsFresh(entry) {
		return models.CacheEntry{}, false
	}
	return entry, true
}

// Peek returns the entry for base regardless of its age.
func (cache *RateCache) Peek(base string) (models.CacheEntry, bool) {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()

	entry, found := cache.entries[base]
	return entry, found
}

// IsFresh reports whether entry is younger than the TTL.
func (cache *RateCache) IsFresh(entry models.CacheEntry) bool {
	return cache.now().Sub(entry.FetchedAt) < cache.ttl
}

// Set overwrites the entry for base.
func (cache *RateCache) Set(base string, entry models.CacheEntry) {
	cache.mutex.Lock()
	cache.entries[base] = entry
	cache.mutex.Unlock()
}

// Reset drops every entry.
func (cache *RateCache) Reset() {
	cache.mutex.Lock()
	cache.entries = make(map[string]models.CacheEntry)
	cache.mutex.Unlock()
}
