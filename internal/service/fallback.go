package service

import (
	"math"
	"strings"

	"github.com/stockfolio/forex-service/internal/models"
)

// ReferenceCurrency anchors every rate table.
const ReferenceCurrency = "SEK"

const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
	SourceCache    = "cache"
)

// fallbackRates holds approximate SEK values of one unit of each currency.
var fallbackRates = models.RateTable{
	"SEK": 1,
	"USD": 10.5,
	"EUR": 11.4,
	"GBP": 13.3,
	"NOK": 0.98,
	"DKK": 1.53,
	"CHF": 11.9,
	"JPY": 0.07,
	"CAD": 7.6,
	"AUD": 6.9,
}

// FallbackRates returns a copy of the static table.
func FallbackRates() models.RateTable {
	return fallbackRates.Clone()
}

// BuildFallback derives a table from the static rates, rebased so that
// base maps to 1, and returns the currency the table is anchored to.
// Bases missing from the static table get the SEK-anchored table as is,
// reported with SEK as the anchor.
func BuildFallback(base string) (models.RateTable, string) {
	base = normalizeCode(base)

	baseRate, known := fallbackRates[base]
	if !known || !isPositiveFinite(baseRate) {
		return fallbackRates.Clone(), ReferenceCurrency
	}

	table := make(models.RateTable, len(fallbackRates))
	for code, rate := range fallbackRates {
		table[code] = rate / baseRate
	}
	table[base] = 1
	return table, base
}

// NormalizeCurrency trims and upper-cases a base currency, defaulting to SEK.
func NormalizeCurrency(code string) string {
	if normalized := normalizeCode(code); normalized != "" {
		return normalized
	}
	return ReferenceCurrency
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isPositiveFinite(value float64) bool {
	return value > 0 && !math.IsInf(value, 0) && !math.IsNaN(value)
}
