package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/currency"

	"github.com/stockfolio/forex-service/internal/logger"
	"github.com/stockfolio/forex-service/internal/middleware"
	"github.com/stockfolio/forex-service/internal/models"
	"github.com/stockfolio/forex-service/internal/ratelimit"
	"github.com/stockfolio/forex-service/internal/service"
)

const (
	serviceVersion = "1.0.0"

	forexRatesCacheControl = "public, s-maxage=300, stale-while-revalidate=1800"
	healthCheckTimeout     = 2 * time.Second
)

// HealthCheckFunc pings a backing store.
type HealthCheckFunc func(ctx context.Context) error

// Handlers contains all HTTP handlers
type Handlers struct {
	logger         *logger.Logger
	startTime      time.Time
	resolver       *service.Resolver
	tickerService  *service.TickerService
	rateLimiter    *ratelimit.Limiter
	healthChecks   map[string]HealthCheckFunc
	trustedProxies []string
}

// HandlerConfig holds the dependencies for NewHandlers. TickerService,
// RateLimiter and HealthChecks are optional. Without TrustedProxies the
// client IP is always the peer address.
type HandlerConfig struct {
	Logger         *logger.Logger
	Resolver       *service.Resolver
	TickerService  *service.TickerService
	RateLimiter    *ratelimit.Limiter
	HealthChecks   map[string]HealthCheckFunc
	TrustedProxies []string
}

func NewHandlers(handlerConfig HandlerConfig) *Handlers {
	return &Handlers{
		logger:         handlerConfig.Logger,
		startTime:      time.Now(),
		resolver:       handlerConfig.Resolver,
		tickerService:  handlerConfig.TickerService,
		rateLimiter:    handlerConfig.RateLimiter,
		healthChecks:   handlerConfig.HealthChecks,
		trustedProxies: handlerConfig.TrustedProxies,
	}
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(handlers.trustedProxies); err != nil {
		handlers.logger.WithField("error", err).Warn("invalid trusted proxy list, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.CustomRecovery(handlers.recoverPanic))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())

	if handlers.rateLimiter != nil {
		router.Use(handlers.rateLimiter.Middleware())
	}

	router.GET("/health", handlers.HealthCheck)

	apiGroup := router.Group("/api")
	{
		apiGroup.Any("/forex-rates", handlers.GetForexRates)
		apiGroup.GET("/convert", handlers.Convert)
		apiGroup.GET("/ticker-price", handlers.GetTickerPrice)
	}

	return router
}

// HealthCheck pings every configured backing store. A failed ping marks the
// service degraded but still answers 200 since rates can always be served.
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	healthStatus := "healthy"
	var checks map[string]string

	if len(handlers.healthChecks) > 0 {
		checks = make(map[string]string, len(handlers.healthChecks))
		for name, check := range handlers.healthChecks {
			checkContext, cancel := healthCheckContext(context.Request)
			checkError := check(checkContext)
			cancel()

			if checkError != nil {
				healthStatus = "degraded"
				checks[name] = "unavailable"
				handlers.logger.WithFields(logrus.Fields{"check": name, "error": checkError}).Warn("health check failed")
				continue
			}
			checks[name] = "ok"
		}
	}

	context.JSON(http.StatusOK, models.HealthCheck{
		Status:    healthStatus,
		Timestamp: time.Now(),
		Version:   serviceVersion,
		Uptime:    time.Since(handlers.startTime).String(),
		Checks:    checks,
	})
}

// GetForexRates serves the rate table for ?base= (default SEK). Only GET is
// allowed; preflight OPTIONS requests never reach this handler.
func (handlers *Handlers) GetForexRates(context *gin.Context) {
	if context.Request.Method != http.MethodGet {
		context.Header("Allow", "GET, OPTIONS")
		handlers.writeErrorResponse(context, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	baseCurrency := strings.TrimSpace(context.Query("base"))
	if baseCurrency != "" {
		if _, parseError := currency.ParseISO(strings.ToUpper(baseCurrency)); parseError != nil {
			handlers.writeErrorResponse(context, http.StatusBadRequest, "Invalid base currency")
			return
		}
	}

	result := handlers.resolver.GetExchangeRates(context.Request.Context(), baseCurrency)

	context.Header("Cache-Control", forexRatesCacheControl)
	context.JSON(http.StatusOK, models.ForexRatesResponse{
		Success:   true,
		Base:      result.Base,
		FetchedAt: result.FetchedAt.UnixMilli(),
		Source:    result.Source,
		Rates:     result.Rates,
	})
}

// Convert converts ?amount= of ?currency= into SEK.
func (handlers *Handlers) Convert(context *gin.Context) {
	amount, parseError := strconv.ParseFloat(context.Query("amount"), 64)
	if parseError != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "Invalid amount")
		return
	}

	currencyCode := strings.ToUpper(strings.TrimSpace(context.Query("currency")))
	if _, parseError := currency.ParseISO(currencyCode); parseError != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "Invalid currency")
		return
	}

	converted, found := handlers.convertToReference(context.Request.Context(), amount, currencyCode)
	if !found {
		handlers.writeErrorResponse(context, http.StatusUnprocessableEntity, "No exchange rate for "+currencyCode)
		return
	}

	context.JSON(http.StatusOK, models.ConvertResponse{
		Success:   true,
		Amount:    amount,
		Currency:  currencyCode,
		Reference: service.ReferenceCurrency,
		Converted: converted,
	})
}

// GetTickerPrice returns the latest price for ?symbol= and, when a rate is
// known, its SEK equivalent.
func (handlers *Handlers) GetTickerPrice(context *gin.Context) {
	if handlers.tickerService == nil {
		handlers.writeErrorResponse(context, http.StatusServiceUnavailable, "Ticker prices not configured")
		return
	}

	requestContext := context.Request.Context()
	price, fetchError := handlers.tickerService.GetPrice(requestContext, context.Query("symbol"))
	if fetchError != nil {
		switch {
		case errors.Is(fetchError, service.ErrInvalidSymbol):
			handlers.writeErrorResponse(context, http.StatusBadRequest, "Invalid symbol")
		case errors.Is(fetchError, service.ErrUnknownSymbol):
			handlers.writeErrorResponse(context, http.StatusNotFound, "Unknown symbol")
		default:
			handlers.logger.WithField("error", fetchError).Warn("ticker price lookup failed")
			handlers.writeErrorResponse(context, http.StatusBadGateway, "Failed to fetch ticker price")
		}
		return
	}

	response := models.TickerPriceResponse{
		Success:   true,
		Symbol:    price.Symbol,
		Price:     price.Price,
		Currency:  price.Currency,
		FetchedAt: price.FetchedAt.UnixMilli(),
		Source:    price.Source,
	}
	if priceSEK, found := handlers.convertToReference(requestContext, price.Price, price.Currency); found {
		response.PriceSEK = &priceSEK
	}

	context.JSON(http.StatusOK, response)
}

// convertToReference resolves the SEK table first so a fresh provider table
// is preferred over the static one.
func (handlers *Handlers) convertToReference(ctx context.Context, amount float64, currencyCode string) (float64, bool) {
	var rates models.RateTable
	if result := handlers.resolver.GetExchangeRates(ctx, service.ReferenceCurrency); result.Base == service.ReferenceCurrency {
		rates = result.Rates
	}
	return handlers.resolver.ConvertToReference(amount, currencyCode, rates)
}

func (handlers *Handlers) recoverPanic(context *gin.Context, recovered any) {
	handlers.logger.WithFields(logrus.Fields{
		"path":       context.Request.URL.Path,
		"panic":      recovered,
		"request_id": context.GetString(middleware.RequestIDKey),
	}).Error("handler panic")
	handlers.writeErrorResponse(context, http.StatusInternalServerError, "Internal server error")
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage string) {
	context.AbortWithStatusJSON(statusCode, models.ErrorResponse{
		Success: false,
		Error:   errorMessage,
	})
}

func healthCheckContext(request *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(request.Context(), healthCheckTimeout)
}
