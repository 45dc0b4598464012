package models

import "time"

// RateTable maps a currency code to the SEK value of one unit of that currency.
type RateTable map[string]float64

// Clone returns an independent copy of the table.
func (table RateTable) Clone() RateTable {
	if table == nil {
		return nil
	}
	clone := make(RateTable, len(table))
	for code, rate := range table {
		clone[code] = rate
	}
	return clone
}

// CacheEntry is a resolved rate table together with where it came from.
type CacheEntry struct {
	Base      string    `json:"base"`
	FetchedAt time.Time `json:"fetchedAt"`
	Rates     RateTable `json:"rates"`
	Source    string    `json:"source"`
}

type ForexRatesResponse struct {
	Success   bool      `json:"success"`
	Base      string    `json:"base"`
	FetchedAt int64     `json:"fetchedAt"`
	Source    string    `json:"source"`
	Rates     RateTable `json:"rates"`
}

type ConvertResponse struct {
	Success   bool    `json:"success"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
	Converted float64 `json:"converted"`
}

// TickerPrice is a resolved quote for a single symbol.
type TickerPrice struct {
	Symbol    string
	Price     float64
	Currency  string
	FetchedAt time.Time
	Source    string
}

// TickerPriceRecord is a row of the ticker_price_cache table.
type TickerPriceRecord struct {
	Symbol    string    `db:"symbol"`
	Price     float64   `db:"price"`
	Currency  string    `db:"currency"`
	FetchedAt time.Time `db:"fetched_at"`
}

type TickerPriceResponse struct {
	Success   bool     `json:"success"`
	Symbol    string   `json:"symbol"`
	Price     float64  `json:"price"`
	Currency  string   `json:"currency"`
	PriceSEK  *float64 `json:"priceSek,omitempty"`
	FetchedAt int64    `json:"fetchedAt"`
	Source    string   `json:"source"`
}

type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
