package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// MockForexServer imitates the exchangerate-api v6 "latest" endpoint:
// GET /{apiKey}/latest/{BASE}
type MockForexServer struct {
	server *httptest.Server
	calls  atomic.Int64

	mutex      sync.RWMutex
	quotes     map[string]map[string]float64
	statusCode int
	rawBody    string
}

// NewMockForexServer creates a mock with SEK and USD quote sets
func NewMockForexServer() *MockForexServer {
	mock := &MockForexServer{
		quotes: map[string]map[string]float64{
			"SEK": {"SEK": 1, "USD": 0.1, "EUR": 0.08, "GBP": 0.075, "NOK": 1.0},
			"USD": {"USD": 1, "SEK": 10, "EUR": 0.8, "GBP": 0.75, "NOK": 10},
		},
		statusCode: http.StatusOK,
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockForexServer) handler(w http.ResponseWriter, r *http.Request) {
	m.calls.Add(1)

	m.mutex.RLock()
	statusCode, rawBody := m.statusCode, m.rawBody
	m.mutex.RUnlock()

	if statusCode != http.StatusOK {
		http.Error(w, "upstream failure", statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if rawBody != "" {
		w.Write([]byte(rawBody))
		return
	}

	// path: /{key}/latest/{BASE}
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segments) != 3 || segments[1] != "latest" {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"result": "error", "error-type": "unsupported-code"})
		return
	}

	base := segments[2]
	m.mutex.RLock()
	quotes, found := m.quotes[base]
	m.mutex.RUnlock()
	if !found {
		json.NewEncoder(w).Encode(map[string]string{"result": "error", "error-type": "unsupported-code"})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"result":           "success",
		"base_code":        base,
		"conversion_rates": quotes,
	})
}

// SetQuotes replaces the quotes served for base
func (m *MockForexServer) SetQuotes(base string, quotes map[string]float64) {
	m.mutex.Lock()
	m.quotes[base] = quotes
	m.mutex.Unlock()
}

// SetStatus forces every response to the given status code
func (m *MockForexServer) SetStatus(statusCode int) {
	m.mutex.Lock()
	m.statusCode = statusCode
	m.mutex.Unlock()
}

// SetRawBody forces every 200 response body
func (m *MockForexServer) SetRawBody(body string) {
	m.mutex.Lock()
	m.rawBody = body
	m.mutex.Unlock()
}

// Calls returns how many requests the server has received
func (m *MockForexServer) Calls() int {
	return int(m.calls.Load())
}

// URL returns the mock server URL
func (m *MockForexServer) URL() string {
	return m.server.URL
}

// Close closes the mock server
func (m *MockForexServer) Close() {
	m.server.Close()
}

// MockQuoteServer imitates the Finnhub /quote endpoint
type MockQuoteServer struct {
	server *httptest.Server
	calls  atomic.Int64

	mutex      sync.RWMutex
	prices     map[string]float64
	statusCode int
}

// NewMockQuoteServer creates a new mock quote server
func NewMockQuoteServer() *MockQuoteServer {
	mock := &MockQuoteServer{
		prices:     map[string]float64{"AAPL": 190.5, "MSFT": 410.25},
		statusCode: http.StatusOK,
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockQuoteServer) handler(w http.ResponseWriter, r *http.Request) {
	m.calls.Add(1)

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.statusCode != http.StatusOK {
		http.Error(w, "upstream failure", m.statusCode)
		return
	}
	if r.URL.Path != "/quote" || r.URL.Query().Get("token") == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{
		"c":  m.prices[r.URL.Query().Get("symbol")],
		"pc": 0,
	})
}

// SetPrice sets the current price for symbol
func (m *MockQuoteServer) SetPrice(symbol string, price float64) {
	m.mutex.Lock()
	m.prices[symbol] = price
	m.mutex.Unlock()
}

// SetStatus forces every response to the given status code
func (m *MockQuoteServer) SetStatus(statusCode int) {
	m.mutex.Lock()
	m.statusCode = statusCode
	m.mutex.Unlock()
}

func (m *MockQuoteServer) Calls() int {
	return int(m.calls.Load())
}

func (m *MockQuoteServer) URL() string {
	return m.server.URL
}

func (m *MockQuoteServer) Close() {
	m.server.Close()
}
