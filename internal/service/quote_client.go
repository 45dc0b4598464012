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
)

const quoteProviderName = "finnhub"

// QuoteFetcher returns the latest traded price for a symbol.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (float64, error)
}

// QuoteClient handles calls to the Finnhub quote API
type QuoteClient struct {
	configuration *config.Config
	httpClient    *http.Client
}

// NewQuoteClient creates a new quote client
func NewQuoteClient(configuration *config.Config) *QuoteClient {
	httpTransport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	return &QuoteClient{
		configuration: configuration,
		httpClient:    &http.Client{Timeout: configuration.QuoteAPITimeout, Transport: httpTransport},
	}
}

// FetchQuote reads the current price ("c") from the /quote endpoint. Finnhub
// answers unknown symbols with a zero price.
func (quoteClient *QuoteClient) FetchQuote(ctx context.Context, symbol string) (float64, error) {
	if quoteClient.configuration.QuoteAPIKey == "" {
		return 0, ErrMissingAPIKey
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("token", quoteClient.configuration.QuoteAPIKey)
	endpoint := strings.TrimRight(quoteClient.configuration.QuoteAPIBaseURL, "/") + "/quote?" + query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, &ProviderError{Provider: quoteProviderName, Cause: err}
	}

	response, err := quoteClient.httpClient.Do(request)
	if err != nil {
		return 0, &ProviderError{Provider: quoteProviderName, Cause: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return 0, &ProviderError{Provider: quoteProviderName, StatusCode: response.StatusCode}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, &ProviderError{Provider: quoteProviderName, StatusCode: response.StatusCode, Cause: err}
	}

	price := gjson.GetBytes(body, "c")
	if price.Type != gjson.Number {
		return 0, &NormalizationError{Provider: quoteProviderName, Reason: "current price missing"}
	}
	if !isPositiveFinite(price.Float()) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return price.Float(), nil
}
