package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stockfolio/forex-service/internal/models"
	"github.com/stockfolio/forex-service/internal/testutils"
)

func TestRateCache_FreshnessWindow(t *testing.T) {
	clock := testutils.NewFixedClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cache := NewRateCache(5 * time.Minute).WithClock(clock.Now)

	cache.Set("SEK", models.CacheEntry{
		Base:      "SEK",
		FetchedAt: clock.Now(),
		Rates:     models.RateTable{"SEK": 1},
		Source:    SourceProvider,
	})

	entry, found := cache.Get("SEK")
	assert.True(t, found)
	assert.Equal(t, SourceProvider, entry.Source)

	clock.Advance(5*time.Minute - time.Millisecond)
	_, found = cache.Get("SEK")
	assert.True(t, found, "entry should still be fresh just before the TTL")

	clock.Advance(time.Millisecond)
	_, found = cache.Get("SEK")
	assert.False(t, found, "entry should be stale at the TTL")

	_, found = cache.Peek("SEK")
	assert.True(t, found, "stale entries stay readable through Peek")
}

func TestRateCache_SetOverwrites(t *testing.T) {
	cache := NewRateCache(time.Minute)

	cache.Set("USD", models.CacheEntry{Base: "USD", FetchedAt: time.Now(), Source: SourceFallback})
	cache.Set("USD", models.CacheEntry{Base: "USD", FetchedAt: time.Now(), Source: SourceProvider})

	entry, found := cache.Get("USD")
	assert.True(t, found)
	assert.Equal(t, SourceProvider, entry.Source)
}

func TestRateCache_Reset(t *testing.T) {
	cache := NewRateCache(time.Minute)
	cache.Set("SEK", models.CacheEntry{Base: "SEK", FetchedAt: time.Now()})

	cache.Reset()

	_, found := cache.Peek("SEK")
	assert.False(t, found)
}

func TestRateCache_MissingBase(t *testing.T) {
	cache := NewRateCache(time.Minute)

	_, found := cache.Get("EUR")
	assert.False(t, found)
}
