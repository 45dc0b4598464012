package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/stockfolio/forex-service/internal/config"
	"github.com/stockfolio/forex-service/internal/logger"
	"github.com/stockfolio/forex-service/internal/models"
)

const (
	SourceDatabase = "database"
	SourceStale    = "stale"
)

// TickerPriceStore persists the last known price per symbol.
type TickerPriceStore interface {
	Get(ctx context.Context, symbol string) (models.TickerPriceRecord, bool, error)
	Upsert(ctx context.Context, record models.TickerPriceRecord) error
}

// TickerService resolves prices through an in-process cache, the durable
// store and the quote API. Rows up to the stale window old are served when
// the quote API fails.
type TickerService struct {
	configuration *config.Config
	logger        *logger.Logger
	quotes        QuoteFetcher
	store         TickerPriceStore
	memory        *gocache.Cache
	now           func() time.Time
}

func NewTickerService(configuration *config.Config, logger *logger.Logger, quotes QuoteFetcher) *TickerService {
	return &TickerService{
		configuration: configuration,
		logger:        logger,
		quotes:        quotes,
		memory:        gocache.New(configuration.QuoteFreshTTL, 10*time.Minute),
		now:           time.Now,
	}
}

// WithStore attaches the durable price store
func (tickerService *TickerService) WithStore(store TickerPriceStore) *TickerService {
	tickerService.store = store
	return tickerService
}

// WithClock replaces the time source used for database freshness checks
func (tickerService *TickerService) WithClock(now func() time.Time) *TickerService {
	tickerService.now = now
	return tickerService
}

// GetPrice resolves the latest price for a symbol, reporting where it came from in Source.
func (tickerService *TickerService) GetPrice(ctx context.Context, rawSymbol string) (models.TickerPrice, error) {
	symbol := strings.ToUpper(strings.TrimSpace(rawSymbol))
	if symbol == "" {
		return models.TickerPrice{}, ErrInvalidSymbol
	}

	if cached, found := tickerService.memory.Get(symbol); found {
		price := cached.(models.TickerPrice)
		price.Source = SourceCache
		return price, nil
	}

	stored, hasStored := tickerService.loadStored(ctx, symbol)
	if hasStored {
		age := tickerService.now().Sub(stored.FetchedAt)
		if age < tickerService.configuration.QuoteFreshTTL {
			price := priceFromRecord(stored, SourceDatabase)
			tickerService.memory.Set(symbol, price, tickerService.configuration.QuoteFreshTTL-age)
			return price, nil
		}
	}

	quote, err := tickerService.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		if hasStored && tickerService.now().Sub(stored.FetchedAt) < tickerService.configuration.QuoteStaleWindow {
			tickerService.logger.WithFields(logrus.Fields{
				"symbol": symbol,
				"error":  err,
			}).Warn("quote api failed, serving stale price")
			return priceFromRecord(stored, SourceStale), nil
		}
		if errors.Is(err, ErrUnknownSymbol) {
			return models.TickerPrice{}, err
		}
		return models.TickerPrice{}, fmt.Errorf("%w for %s: %w", ErrQuoteUnavailable, symbol, err)
	}

	record := models.TickerPriceRecord{
		Symbol:    symbol,
		Price:     quote,
		Currency:  tickerService.configuration.QuoteCurrency,
		FetchedAt: tickerService.now(),
	}
	if tickerService.store != nil {
		if err := tickerService.store.Upsert(ctx, record); err != nil {
			tickerService.logger.WithFields(logrus.Fields{"symbol": symbol, "error": err}).Warn("ticker price write failed")
		}
	}

	price := priceFromRecord(record, SourceProvider)
	tickerService.memory.Set(symbol, price, tickerService.configuration.QuoteFreshTTL)
	return price, nil
}

func (tickerService *TickerService) loadStored(ctx context.Context, symbol string) (models.TickerPriceRecord, bool) {
	if tickerService.store == nil {
		return models.TickerPriceRecord{}, false
	}

	record, found, err := tickerService.store.Get(ctx, symbol)
	if err != nil {
		tickerService.logger.WithFields(logrus.Fields{"symbol": symbol, "error": err}).Warn("ticker price lookup failed")
		return models.TickerPriceRecord{}, false
	}
	return record, found
}

func priceFromRecord(record models.TickerPriceRecord, source string) models.TickerPrice {
	return models.TickerPrice{
		Symbol:    record.Symbol,
		Price:     record.Price,
		Currency:  record.Currency,
		FetchedAt: record.FetchedAt,
		Source:    source,
	}
}
