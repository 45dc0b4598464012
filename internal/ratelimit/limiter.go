package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/stockfolio/forex-service/internal/config"
	"github.com/stockfolio/forex-service/internal/logger"
	"github.com/stockfolio/forex-service/internal/models"
)

const (
	cleanupInterval = 5 * time.Minute
	idleTimeout     = 24 * time.Hour
)

// Limiter keeps one token bucket per client IP.
type Limiter struct {
	Configuration *config.Config
	logger        *logger.Logger

	clients      map[string]*client
	clientsMutex sync.Mutex

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter refilling RateLimitRequests tokens per
// RateLimitWindow with a bucket size of RateLimitBurst.
func NewLimiter(configuration *config.Config, logger *logger.Logger) *Limiter {
	rateLimiter := &Limiter{
		Configuration: configuration,
		logger:        logger,
		clients:       make(map[string]*client),
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
	}

	go rateLimiter.cleanup()

	return rateLimiter
}

func (rateLimiter *Limiter) refillRate() rate.Limit {
	window := rateLimiter.Configuration.RateLimitWindow
	if window <= 0 || rateLimiter.Configuration.RateLimitRequests <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(rateLimiter.Configuration.RateLimitRequests) / window.Seconds())
}

// Allow reports whether a request from clientIP may proceed.
func (rateLimiter *Limiter) Allow(clientIP string) bool {
	if !rateLimiter.Configuration.RateLimitEnabled {
		return true
	}

	rateLimiter.clientsMutex.Lock()
	entry, exists := rateLimiter.clients[clientIP]
	if !exists {
		entry = &client{limiter: rate.NewLimiter(rateLimiter.refillRate(), rateLimiter.Configuration.RateLimitBurst)}
		rateLimiter.clients[clientIP] = entry
	}
	entry.lastSeen = time.Now()
	rateLimiter.clientsMutex.Unlock()

	return entry.limiter.Allow()
}

// Middleware rejects requests over the limit with 429. Clients are keyed by
// gin's ClientIP, so forwarding headers count only behind trusted proxies.
func (rateLimiter *Limiter) Middleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		clientIP := context.ClientIP()

		if !rateLimiter.Allow(clientIP) {
			rateLimiter.logger.Warnf("Rate limit exceeded for IP: %s", clientIP)
			context.Header("X-RateLimit-Limit", strconv.Itoa(rateLimiter.Configuration.RateLimitRequests))
			context.Header("X-RateLimit-Remaining", "0")
			context.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateLimiter.Configuration.RateLimitWindow).Unix(), 10))
			context.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Success: false,
				Error:   "Rate limit exceeded",
			})
			return
		}

		context.Next()
	}
}

// cleanup drops clients idle for longer than a day.
func (rateLimiter *Limiter) cleanup() {
	for {
		select {
		case <-rateLimiter.cleanupTicker.C:
			rateLimiter.evictIdle(time.Now())
		case <-rateLimiter.stopCleanup:
			rateLimiter.cleanupTicker.Stop()
			return
		}
	}
}

func (rateLimiter *Limiter) evictIdle(now time.Time) {
	rateLimiter.clientsMutex.Lock()
	defer rateLimiter.clientsMutex.Unlock()

	for clientIP, entry := range rateLimiter.clients {
		if now.Sub(entry.lastSeen) > idleTimeout {
			delete(rateLimiter.clients, clientIP)
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rateLimiter *Limiter) Stop() {
	rateLimiter.stopOnce.Do(func() { close(rateLimiter.stopCleanup) })
}
