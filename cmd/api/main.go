package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iixiiartist/founderhq-enrichment/internal/auth"
	"github.com/iixiiartist/founderhq-enrichment/internal/config"
	"github.com/iixiiartist/founderhq-enrichment/internal/database"
	"github.com/iixiiartist/founderhq-enrichment/internal/handler"
	middlewarepkg "github.com/iixiiartist/founderhq-enrichment/internal/middleware"
	"github.com/iixiiartist/founderhq-enrichment/internal/observability"
	"github.com/iixiiartist/founderhq-enrichment/internal/repository"
	"github.com/iixiiartist/founderhq-enrichment/internal/router"
	"github.com/iixiiartist/founderhq-enrichment/internal/service"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/limiter"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/provider"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/sanitize"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so a redis outage at boot is survivable.
		logger.Warn("redis unreachable at startup, rate limiting will fail open", zap.Error(err))
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.TokenTTL)
	scrubber := observability.NewScrubber(cfg.IsProduction())

	membershipRepo := repository.NewPGXMembershipRepository(pool)
	cacheRepo := repository.NewPGXCacheRepository(pool)
	balanceRepo := repository.NewPGXBalanceRepository(pool)
	metricsRepo := repository.NewPGXMetricsRepository(pool)

	providerClient := provider.NewClient(
		provider.NewMemoryBreakers(),
		logger.Named("provider"),
		provider.WithTimeout(cfg.ProviderTimeout),
	)
	primary := provider.NewCompoundAdapter(providerClient, cfg.PrimaryProviderURL, cfg.PrimaryProviderKey)
	fallback := provider.NewSearchAdapter(providerClient, cfg.FallbackProviderURL, cfg.FallbackProviderKey)

	rateLimiter := limiter.NewRateLimiter(
		redisClient,
		cfg.RateLimitEnrich.Requests,
		cfg.RateLimitEnrich.Interval,
		logger.Named("ratelimit"),
	)
	balanceManager := limiter.NewBalanceManager(balanceRepo, cfg.EnrichCostCents, logger.Named("balance"))
	cacheService := service.NewCacheService(cacheRepo, cfg.CacheTTL, cfg.CacheCapacity, logger.Named("cache"),
		service.WithCacheScrubber(scrubber))
	accessService := service.NewAccessService(membershipRepo, verifier, logger.Named("access"))
	enrichService := service.NewEnrichService(
		rateLimiter,
		balanceManager,
		cacheService,
		primary,
		fallback,
		sanitize.NewCleaner(),
		metricsRepo,
		scrubber,
		logger.Named("enrich"),
	)

	enrichHandler := handler.NewEnrichHandler(accessService, enrichService, logger.Named("http"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger.Named("http")))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowMethods: []string{http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-Workspace-Id"},
	}))

	router.Register(e, router.Handlers{Enrich: enrichHandler})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + cfg.Port)
	}()
	logger.Info("enrichment api listening", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
