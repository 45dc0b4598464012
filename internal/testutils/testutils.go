package testutils

import (
	"io"
	"time"

	"github.com/stockfolio/forex-service/internal/config"
	"github.com/stockfolio/forex-service/internal/logger"
)

// MockLogger creates a logger that discards its output
func MockLogger() *logger.Logger {
	log := logger.New("debug")
	log.SetOutput(io.Discard)
	return log
}

// MockConfig creates a configuration with no upstream credentials and
// rate limiting disabled
func MockConfig() *config.Config {
	return &config.Config{
		Port:     "0",
		LogLevel: "debug",

		ForexAPIBaseURL: "http://127.0.0.1:0",
		ForexAPITimeout: 2 * time.Second,
		RatesCacheTTL:   5 * time.Minute,

		QuoteAPIBaseURL:  "http://127.0.0.1:0",
		QuoteAPITimeout:  2 * time.Second,
		QuoteCurrency:    "USD",
		QuoteFreshTTL:    5 * time.Minute,
		QuoteStaleWindow: 24 * time.Hour,

		RateLimitEnabled:  false,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RateLimitBurst:    10,
	}
}

// MockConfigWithMocks points both upstream APIs at the given mock servers
func MockConfigWithMocks(forexServerURL, quoteServerURL string) *config.Config {
	cfg := MockConfig()
	cfg.ForexAPIKey = "test-forex-key"
	cfg.ForexAPIBaseURL = forexServerURL
	cfg.QuoteAPIKey = "test-quote-key"
	cfg.QuoteAPIBaseURL = quoteServerURL
	return cfg
}

// FixedClock returns a controllable time source
type FixedClock struct {
	current time.Time
}

func NewFixedClock(start time.Time) *FixedClock {
	return &FixedClock{current: start}
}

func (clock *FixedClock) Now() time.Time {
	return clock.current
}

func (clock *FixedClock) Advance(duration time.Duration) {
	clock.current = clock.current.Add(duration)
}
