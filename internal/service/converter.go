package service

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/stockfolio/forex-service/internal/models"
)

// ConvertToReference converts amount of currency into SEK. Rates are looked
// up in the given SEK-anchored tables in order, then in the static table.
// It reports false for a non-finite amount, when no rate exists, or when the
// result overflows float64.
func ConvertToReference(amount float64, currency string, tables ...models.RateTable) (float64, bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false
	}

	code := normalizeCode(currency)
	if code == ReferenceCurrency {
		return amount, true
	}

	candidates := make([]models.RateTable, 0, len(tables)+1)
	candidates = append(candidates, tables...)
	candidates = append(candidates, fallbackRates)

	for _, table := range candidates {
		rate, found := table[code]
		if !found || !isPositiveFinite(rate) {
			continue
		}
		converted, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Float64()
		if math.IsNaN(converted) || math.IsInf(converted, 0) {
			return 0, false
		}
		return converted, true
	}
	return 0, false
}

// ConvertToReference is the package-level converter with the cached SEK
// table, fresh or not, slotted in between the supplied rates and the static
// table. It never fetches.
func (resolver *Resolver) ConvertToReference(amount float64, currency string, rates models.RateTable) (float64, bool) {
	var cached models.RateTable
	if entry, found := resolver.cache.Peek(ReferenceCurrency); found {
		cached = entry.Rates
	}
	return ConvertToReference(amount, currency, rates, cached)
}
