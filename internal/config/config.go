package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port     string
	LogLevel string

	// Forex rate provider. An empty ForexAPIKey puts the resolver in permanent fallback mode.
	ForexAPIKey     string
	ForexAPIBaseURL string
	ForexAPITimeout time.Duration
	RatesCacheTTL   time.Duration

	// Optional shared infrastructure
	RedisURL    string
	DatabaseURL string

	// Ticker price quotes
	QuoteAPIKey      string
	QuoteAPIBaseURL  string
	QuoteAPITimeout  time.Duration
	QuoteCurrency    string
	QuoteFreshTTL    time.Duration
	QuoteStaleWindow time.Duration

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int

	// Proxies whose X-Forwarded-For / X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ForexAPIKey:     getEnv("FOREX_API_KEY", ""),
		ForexAPIBaseURL: getEnv("FOREX_API_BASE_URL", "https://v6.exchangerate-api.com/v6"),
		ForexAPITimeout: seconds("FOREX_API_TIMEOUT_SECONDS", 10),
		RatesCacheTTL:   seconds("FOREX_CACHE_TTL_SECONDS", 300),

		RedisURL:    getEnv("REDIS_URL", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		QuoteAPIKey:      getEnv("QUOTE_API_KEY", ""),
		QuoteAPIBaseURL:  getEnv("QUOTE_API_BASE_URL", "https://finnhub.io/api/v1"),
		QuoteAPITimeout:  seconds("QUOTE_API_TIMEOUT_SECONDS", 10),
		QuoteCurrency:    getEnv("QUOTE_CURRENCY", "USD"),
		QuoteFreshTTL:    seconds("QUOTE_FRESH_SECONDS", 300),
		QuoteStaleWindow: time.Duration(mustAtoi(getEnv("QUOTE_STALE_HOURS", "24"), 24)) * time.Hour,

		RateLimitEnabled:  getEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitRequests: mustAtoi(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
		RateLimitWindow:   seconds("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitBurst:    mustAtoi(getEnv("RATE_LIMIT_BURST", "10"), 10),

		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func seconds(key string, fallback int) time.Duration {
	return time.Duration(mustAtoi(getEnv(key, strconv.Itoa(fallback)), fallback)) * time.Second
}

// splitList parses a comma-separated value, dropping empty items.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func mustAtoi(s string, fallback int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return i
}
