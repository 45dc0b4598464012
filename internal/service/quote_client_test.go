package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockfolio/forex-service/internal/testutils"
)

func TestQuoteClient_FetchQuote(t *testing.T) {
	mockServer := testutils.NewMockQuoteServer()
	defer mockServer.Close()

	client := NewQuoteClient(testutils.MockConfigWithMocks("", mockServer.URL()))

	price, err := client.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.5, price)

	_, err = client.FetchQuote(context.Background(), "UNKNOWN")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, 2, mockServer.Calls())
}

func TestQuoteClient_MissingAPIKey(t *testing.T) {
	mockServer := testutils.NewMockQuoteServer()
	defer mockServer.Close()

	cfg := testutils.MockConfigWithMocks("", mockServer.URL())
	cfg.QuoteAPIKey = ""

	_, err := NewQuoteClient(cfg).FetchQuote(context.Background(), "AAPL")

	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, 0, mockServer.Calls())
}

func TestQuoteClient_UpstreamStatus(t *testing.T) {
	mockServer := testutils.NewMockQuoteServer()
	defer mockServer.Close()
	mockServer.SetStatus(http.StatusTooManyRequests)

	_, err := NewQuoteClient(testutils.MockConfigWithMocks("", mockServer.URL())).FetchQuote(context.Background(), "AAPL")

	var providerError *ProviderError
	require.True(t, errors.As(err, &providerError))
	assert.Equal(t, http.StatusTooManyRequests, providerError.StatusCode)
}

func TestQuoteClient_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"You don't have access to this resource."}`))
	}))
	defer server.Close()

	_, err := NewQuoteClient(testutils.MockConfigWithMocks("", server.URL)).FetchQuote(context.Background(), "AAPL")

	var normalizationError *NormalizationError
	assert.True(t, errors.As(err, &normalizationError))
}
