package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stockfolio/forex-service/internal/config"
	"github.com/stockfolio/forex-service/internal/models"
)

const forexProviderName = "exchangerate-api"

// RateFetcher loads a SEK-anchored rate table from a forex provider.
type RateFetcher interface {
	Fetch(ctx context.Context, baseCurrency, apiKey string) (models.RateTable, error)
}

// HTTPRateFetcher implements RateFetcher against the exchangerate-api v6
// "latest" endpoint.
type HTTPRateFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRateFetcher creates a new HTTP rate fetcher
func NewHTTPRateFetcher(configuration *config.Config) *HTTPRateFetcher {
	timeout := configuration.ForexAPITimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRateFetcher{
		baseURL:    strings.TrimRight(configuration.ForexAPIBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a single request for baseCurrency and normalizes the quotes.
func (fetcher *HTTPRateFetcher) Fetch(ctx context.Context, baseCurrency, apiKey string) (models.RateTable, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, fetcher.buildURL(baseCurrency, apiKey), nil)
	if err != nil {
		return nil, &ProviderError{Provider: forexProviderName, Cause: err}
	}

	response, err := fetcher.httpClient.Do(request)
	if err != nil {
		return nil, &ProviderError{Provider: forexProviderName, Cause: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &ProviderError{Provider: forexProviderName, StatusCode: response.StatusCode}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &ProviderError{Provider: forexProviderName, StatusCode: response.StatusCode, Cause: err}
	}

	return parseConversionRates(body, baseCurrency)
}

func (fetcher *HTTPRateFetcher) buildURL(baseCurrency, apiKey string) string {
	return fmt.Sprintf("%s/%s/latest/%s", fetcher.baseURL, url.PathEscape(apiKey), url.PathEscape(baseCurrency))
}

// parseConversionRates extracts the numeric quotes from a provider payload.
// Quotes that are not JSON numbers are skipped.
func parseConversionRates(body []byte, baseCurrency string) (models.RateTable, error) {
	if !gjson.ValidBytes(body) {
		return nil, &NormalizationError{Provider: forexProviderName, Reason: "invalid JSON"}
	}
	payload := gjson.ParseBytes(body)

	if result := payload.Get("result"); result.Exists() && result.String() != "success" {
		reason := "result " + result.String()
		if errorType := payload.Get("error-type"); errorType.Exists() {
			reason += " (" + errorType.String() + ")"
		}
		return nil, &NormalizationError{Provider: forexProviderName, Reason: reason}
	}

	conversionRates := payload.Get("conversion_rates")
	if !conversionRates.IsObject() {
		return nil, &NormalizationError{Provider: forexProviderName, Reason: "conversion_rates missing"}
	}

	quotes := make(map[string]float64)
	conversionRates.ForEach(func(code, value gjson.Result) bool {
		if value.Type == gjson.Number {
			quotes[normalizeCode(code.String())] = value.Float()
		}
		return true
	})

	return normalizeQuotes(baseCurrency, quotes)
}

// normalizeQuotes turns "units of X per one base" quotes into SEK values of
// one unit of X. Non-positive and non-finite quotes are dropped.
func normalizeQuotes(baseCurrency string, quotes map[string]float64) (models.RateTable, error) {
	base := normalizeCode(baseCurrency)
	rates := make(models.RateTable, len(quotes)+1)

	if base == ReferenceCurrency {
		for code, quote := range quotes {
			if !isPositiveFinite(quote) {
				continue
			}
			if inverted := 1 / quote; isPositiveFinite(inverted) {
				rates[code] = inverted
			}
		}
		rates[ReferenceCurrency] = 1
		return rates, nil
	}

	referencePerBase, found := quotes[ReferenceCurrency]
	if !found || !isPositiveFinite(referencePerBase) {
		return nil, &NormalizationError{
			Provider: forexProviderName,
			Reason:   fmt.Sprintf("no positive %s quote for base %s", ReferenceCurrency, base),
		}
	}

	for code, quote := range quotes {
		if code == base || !isPositiveFinite(quote) {
			continue
		}
		if rate := (1 / quote) * referencePerBase; isPositiveFinite(rate) {
			rates[code] = rate
		}
	}
	rates[base] = referencePerBase
	rates[ReferenceCurrency] = 1
	return rates, nil
}
