package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/stockfolio/forex-service/internal/api"
	"github.com/stockfolio/forex-service/internal/config"
	"github.com/stockfolio/forex-service/internal/logger"
	"github.com/stockfolio/forex-service/internal/platform"
	"github.com/stockfolio/forex-service/internal/ratelimit"
	"github.com/stockfolio/forex-service/internal/repository"
	"github.com/stockfolio/forex-service/internal/service"
)

const connectTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	if cfg.ForexAPIKey == "" {
		logger.Warn("FOREX_API_KEY not set, serving static fallback rates only")
	}

	healthChecks := make(map[string]api.HealthCheckFunc)
	resolver := service.NewResolver(cfg, logger)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		redisClient, err = repository.ConnectRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Warnf("Redis unavailable, rate snapshots disabled: %v", err)
		} else {
			resolver.WithSnapshotStore(repository.NewRateSnapshotRepository(redisClient, cfg.RatesCacheTTL))
			healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	tickerService := service.NewTickerService(cfg, logger, service.NewQuoteClient(cfg))

	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		db, err = repository.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err == nil {
			tickerRepository := repository.NewTickerPriceRepository(db, logger)
			if err = tickerRepository.EnsureSchema(ctx); err == nil {
				tickerService.WithStore(tickerRepository)
				healthChecks["postgres"] = db.PingContext
			}
		}
		cancel()
		if err != nil {
			logger.Warnf("Postgres unavailable, ticker prices are not persisted: %v", err)
		}
	}

	rateLimiter := ratelimit.NewLimiter(cfg, logger)

	handlers := api.NewHandlers(api.HandlerConfig{
		Logger:         logger,
		Resolver:       resolver,
		TickerService:  tickerService,
		RateLimiter:    rateLimiter,
		HealthChecks:   healthChecks,
		TrustedProxies: cfg.TrustedProxies,
	})

	gin.SetMode(gin.ReleaseMode)
	router := handlers.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("Starting forex service on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	shutdownCtx, stop := platform.NewShutdownContext(context.Background())
	defer stop()
	<-shutdownCtx.Done()

	logger.Info("Shutting down server...")

	rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		db.Close()
	}

	logger.Info("Server exited")
}
