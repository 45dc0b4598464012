package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockfolio/forex-service/internal/models"
	"github.com/stockfolio/forex-service/internal/testutils"
)

type stubQuoteFetcher struct {
	calls int
	price float64
	err   error
}

func (f *stubQuoteFetcher) FetchQuote(ctx context.Context, symbol string) (float64, error) {
	f.calls++
	return f.price, f.err
}

type memoryTickerStore struct {
	mutex   sync.Mutex
	records map[string]models.TickerPriceRecord
	upserts []models.TickerPriceRecord
	getErr  error
}

func newMemoryTickerStore(records ...models.TickerPriceRecord) *memoryTickerStore {
	store := &memoryTickerStore{records: make(map[string]models.TickerPriceRecord)}
	for _, record := range records {
		store.records[record.Symbol] = record
	}
	return store
}

func (s *memoryTickerStore) Get(ctx context.Context, symbol string) (models.TickerPriceRecord, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.getErr != nil {
		return models.TickerPriceRecord{}, false, s.getErr
	}
	record, found := s.records[symbol]
	return record, found, nil
}

func (s *memoryTickerStore) Upsert(ctx context.Context, record models.TickerPriceRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[record.Symbol] = record
	s.upserts = append(s.upserts, record)
	return nil
}

var tickerNow = time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)

func newTestTickerService(quotes QuoteFetcher, store TickerPriceStore) *TickerService {
	clock := testutils.NewFixedClock(tickerNow)
	tickerService := NewTickerService(testutils.MockConfig(), testutils.MockLogger(), quotes).WithClock(clock.Now)
	if store != nil {
		tickerService.WithStore(store)
	}
	return tickerService
}

func TestTickerService_ProviderThenMemory(t *testing.T) {
	quotes := &stubQuoteFetcher{price: 190.5}
	store := newMemoryTickerStore()
	tickerService := newTestTickerService(quotes, store)

	first, err := tickerService.GetPrice(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, 190.5, first.Price)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, SourceProvider, first.Source)
	require.Len(t, store.upserts, 1)
	assert.Equal(t, tickerNow, store.upserts[0].FetchedAt)

	second, err := tickerService.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, 1, quotes.calls)
}

func TestTickerService_FreshDatabaseRow(t *testing.T) {
	quotes := &stubQuoteFetcher{price: 1}
	store := newMemoryTickerStore(models.TickerPriceRecord{
		Symbol: "MSFT", Price: 410.25, Currency: "USD", FetchedAt: tickerNow.Add(-time.Minute),
	})
	tickerService := newTestTickerService(quotes, store)

	price, err := tickerService.GetPrice(context.Background(), "MSFT")

	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, price.Source)
	assert.Equal(t, 410.25, price.Price)
	assert.Equal(t, 0, quotes.calls)
}

func TestTickerService_OldDatabaseRowIsRefreshed(t *testing.T) {
	quotes := &stubQuoteFetcher{price: 415}
	store := newMemoryTickerStore(models.TickerPriceRecord{
		Symbol: "MSFT", Price: 410.25, Currency: "USD", FetchedAt: tickerNow.Add(-10 * time.Minute),
	})
	tickerService := newTestTickerService(quotes, store)

	price, err := tickerService.GetPrice(context.Background(), "MSFT")

	require.NoError(t, err)
	assert.Equal(t, SourceProvider, price.Source)
	assert.Equal(t, 415.0, price.Price)
	assert.Equal(t, 415.0, store.records["MSFT"].Price)
}

func TestTickerService_StaleWindow(t *testing.T) {
	upstreamDown := &ProviderError{Provider: quoteProviderName, StatusCode: 503}

	tests := []struct {
		name       string
		age        time.Duration
		wantSource string
		wantErr    error
	}{
		{"two hours old row is served stale", 2 * time.Hour, SourceStale, nil},
		{"row just inside the window", 24*time.Hour - time.Second, SourceStale, nil},
		{"row older than the window", 25 * time.Hour, "", ErrQuoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryTickerStore(models.TickerPriceRecord{
				Symbol: "AAPL", Price: 188, Currency: "USD", FetchedAt: tickerNow.Add(-tt.age),
			})
			tickerService := newTestTickerService(&stubQuoteFetcher{err: upstreamDown}, store)

			price, err := tickerService.GetPrice(context.Background(), "AAPL")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var providerError *ProviderError
				assert.True(t, errors.As(err, &providerError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, price.Source)
			assert.Equal(t, 188.0, price.Price)
		})
	}
}

func TestTickerService_Errors(t *testing.T) {
	tickerService := newTestTickerService(&stubQuoteFetcher{err: ErrUnknownSymbol}, nil)

	_, err := tickerService.GetPrice(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = tickerService.GetPrice(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	noKey := newTestTickerService(&stubQuoteFetcher{err: ErrMissingAPIKey}, nil)
	_, err = noKey.GetPrice(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestTickerService_StoreErrorsDoNotBlockUpstream(t *testing.T) {
	store := newMemoryTickerStore()
	store.getErr = errors.New("connection reset")
	quotes := &stubQuoteFetcher{price: 99}

	price, err := newTestTickerService(quotes, store).GetPrice(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, SourceProvider, price.Source)
	assert.Equal(t, 1, quotes.calls)
}
