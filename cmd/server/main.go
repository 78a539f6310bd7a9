package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kevocado/FPL-Optimizer/internal/api"
	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/internal/providers"
	"github.com/Kevocado/FPL-Optimizer/internal/services"
	"github.com/Kevocado/FPL-Optimizer/pkg/config"
	"github.com/Kevocado/FPL-Optimizer/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engineCfg, err := engineConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid optimizer configuration: %v", err)
	}
	engine, err := optimizer.NewEngine(engineCfg, log)
	if err != nil {
		log.Fatalf("Failed to create optimizer engine: %v", err)
	}

	deps := api.Dependencies{
		Engine: engine,
		Logger: log,
	}

	// Redis is optional; without it snapshots and results live in memory only
	var store services.Cache
	if cfg.RedisEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err := services.NewRedisClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Warnf("Redis unavailable, continuing without it: %v", err)
		} else {
			defer redisClient.Close()
			cacheService := services.NewCacheService(redisClient, log)
			store = cacheService
			deps.Cache = cacheService
			deps.Redis = cacheService
		}
	}

	fplClient := providers.NewFPLClient(providers.FPLClientConfig{
		BaseURL:          cfg.FPLBaseURL,
		Timeout:          cfg.ExternalAPITimeout,
		RateLimit:        cfg.FPLRateLimit,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
	}, log)
	deps.BreakerState = func() string { return fplClient.BreakerState().String() }

	loader := services.NewFPLLoader(fplClient, store, cfg.FixtureHorizon, log)
	pool := services.NewPoolCache(loader, store, cfg.SnapshotTTL, log)
	deps.Pool = pool
	deps.Entries = loader

	dataFetcher := services.NewDataFetcherService(pool, log, cfg.DataRefreshInterval)
	if err := dataFetcher.Start(); err != nil {
		log.Errorf("Failed to start data fetcher: %v", err)
	}
	defer dataFetcher.Stop()

	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SolverTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

// engineConfig maps the service configuration onto the optimizer.
func engineConfig(cfg *config.Config) (optimizer.EngineConfig, error) {
	ec := optimizer.DefaultEngineConfig()

	ec.Rules = ec.Rules.WithBudget(models.PriceFromMillions(cfg.BudgetCap))
	ec.Rules.MaxPerClub = cfg.MaxPlayersPerClub

	mode, err := optimizer.ParseSolverMode(cfg.SolverMode)
	if err != nil {
		return ec, err
	}
	ec.Mode = mode

	method, err := optimizer.ParseNormalizationMethod(cfg.Normalization)
	if err != nil {
		return ec, err
	}
	ec.Normalization = method

	if len(cfg.StrategyWeights) > 0 {
		weights, err := ec.Weights.WithOverrides(cfg.StrategyWeights)
		if err != nil {
			return ec, err
		}
		ec.Weights = weights
	}

	ec.Timeout = cfg.SolverTimeout
	ec.MinMinutes = cfg.MinMinutes
	ec.MinChanceOfPlaying = cfg.MinChanceOfPlaying
	ec.TransferLimit = cfg.TransferLimit
	ec.FreeTransfers = cfg.FreeTransfers
	return ec, nil
}
