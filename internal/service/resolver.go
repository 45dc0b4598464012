package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/stockfolio/forex-service/internal/config"
	"github.com/stockfolio/forex-service/internal/logger"
	"github.com/stockfolio/forex-service/internal/models"
)

// SnapshotStore shares provider-sourced rate tables between instances.
type SnapshotStore interface {
	Load(ctx context.Context, base string) (models.CacheEntry, bool, error)
	Save(ctx context.Context, entry models.CacheEntry) error
}

// Result is what GetExchangeRates hands back to callers.
type Result struct {
	Base      string
	FetchedAt time.Time
	Rates     models.RateTable
	Source    string
}

// Resolver serves rate tables from cache, the forex provider, or the static
// fallback table, in that order.
type Resolver struct {
	configuration *config.Config
	logger        *logger.Logger
	fetcher       RateFetcher
	cache         *RateCache
	snapshots     SnapshotStore

	singleFlightGroup singleflight.Group
}

func NewResolver(configuration *config.Config, logger *logger.Logger) *Resolver {
	return &Resolver{
		configuration: configuration,
		logger:        logger,
		fetcher:       NewHTTPRateFetcher(configuration),
		cache:         NewRateCache(configuration.RatesCacheTTL),
	}
}

// WithFetcher replaces the provider client
func (resolver *Resolver) WithFetcher(fetcher RateFetcher) *Resolver {
	resolver.fetcher = fetcher
	return resolver
}

// WithSnapshotStore attaches a shared snapshot tier
func (resolver *Resolver) WithSnapshotStore(store SnapshotStore) *Resolver {
	resolver.snapshots = store
	return resolver
}

// WithClock replaces the time source used for freshness checks
func (resolver *Resolver) WithClock(now func() time.Time) *Resolver {
	resolver.cache.WithClock(now)
	return resolver
}

func (resolver *Resolver) Cache() *RateCache {
	return resolver.cache
}

// GetExchangeRates never fails: provider and payload errors are logged and
// answered with the fallback table. Concurrent misses for the same base share
// a single provider call, which runs detached from the caller's cancellation
// so one dropped request cannot cache the fallback table for everyone.
func (resolver *Resolver) GetExchangeRates(ctx context.Context, baseCurrency string) Result {
	base := NormalizeCurrency(baseCurrency)

	if entry, found := resolver.cache.Get(base); found {
		return resultFromEntry(entry, SourceCache)
	}

	value, _, _ := resolver.singleFlightGroup.Do("rates:"+base, func() (interface{}, error) {
		if entry, found := resolver.cache.Get(base); found {
			return resultFromEntry(entry, SourceCache), nil
		}
		return resolver.resolve(context.WithoutCancel(ctx), base), nil
	})
	return value.(Result)
}

func (resolver *Resolver) resolve(ctx context.Context, base string) Result {
	if entry, found := resolver.loadSnapshot(ctx, base); found {
		resolver.cache.Set(base, entry)
		return resultFromEntry(entry, SourceCache)
	}

	if resolver.configuration.ForexAPIKey == "" {
		resolver.logger.WithField("base", base).Debug("forex api key not configured, serving fallback rates")
		return resolver.storeFallback(base)
	}

	rates, err := resolver.fetcher.Fetch(ctx, base, resolver.configuration.ForexAPIKey)
	if err != nil {
		resolver.logger.WithFields(logrus.Fields{
			"base":  base,
			"error": err,
		}).Warn("forex provider failed, serving fallback rates")
		return resolver.storeFallback(base)
	}

	entry := models.CacheEntry{
		Base:      base,
		FetchedAt: resolver.cache.Now(),
		Rates:     rates,
		Source:    SourceProvider,
	}
	resolver.cache.Set(base, entry)
	resolver.saveSnapshot(ctx, entry)

	resolver.logger.WithFields(logrus.Fields{"base": base, "currencies": len(rates)}).Info("fetched forex rates")
	return resultFromEntry(entry, SourceProvider)
}

func (resolver *Resolver) storeFallback(base string) Result {
	rates, anchor := BuildFallback(base)
	if anchor != base {
		resolver.logger.WithField("base", base).Warn("no fallback rate for base, serving SEK-anchored table")
	}

	entry := models.CacheEntry{
		Base:      anchor,
		FetchedAt: resolver.cache.Now(),
		Rates:     rates,
		Source:    SourceFallback,
	}
	resolver.cache.Set(base, entry)
	return resultFromEntry(entry, SourceFallback)
}

func (resolver *Resolver) loadSnapshot(ctx context.Context, base string) (models.CacheEntry, bool) {
	if resolver.snapshots == nil {
		return models.CacheEntry{}, false
	}

	entry, found, err := resolver.snapshots.Load(ctx, base)
	if err != nil {
		resolver.logger.WithFields(logrus.Fields{"base": base, "error": err}).Warn("rate snapshot lookup failed")
		return models.CacheEntry{}, false
	}
	if !found || entry.Source != SourceProvider || len(entry.Rates) == 0 || !resolver.cache.IsFresh(entry) {
		return models.CacheEntry{}, false
	}
	return entry, true
}

func (resolver *Resolver) saveSnapshot(ctx context.Context, entry models.CacheEntry) {
	if resolver.snapshots == nil {
		return
	}
	if err := resolver.snapshots.Save(ctx, entry); err != nil {
		resolver.logger.WithFields(logrus.Fields{"base": entry.Base, "error": err}).Warn("rate snapshot write failed")
	}
}

func resultFromEntry(entry models.CacheEntry, source string) Result {
	return Result{
		Base:      entry.Base,
		FetchedAt: entry.FetchedAt,
		Rates:     entry.Rates.Clone(),
		Source:    source,
	}
}
