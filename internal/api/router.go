package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kevocado/FPL-Optimizer/internal/api/handlers"
	"github.com/Kevocado/FPL-Optimizer/internal/api/middleware"
	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/internal/services"
)

// Dependencies are the services the HTTP layer is built from. Cache,
// Entries, Redis and BreakerState are optional.
type Dependencies struct {
	Engine       *optimizer.Engine
	Pool         handlers.PoolSource
	Entries      handlers.EntrySource
	Cache        services.Cache
	Redis        handlers.Pinger
	BreakerState func() string
	Logger       *logrus.Logger
}

// NewRouter builds the gin engine with middleware, health checks and /api/v1.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS())

	health := handlers.NewHealthHandler(deps.Pool, deps.Redis, deps.BreakerState)
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	optimizerHandler := handlers.NewOptimizerHandler(deps.Engine, deps.Pool, deps.Cache, deps.Logger)
	transferHandler := handlers.NewTransferHandler(deps.Engine, deps.Pool, deps.Entries, deps.Logger)

	group.GET("/strategies", optimizerHandler.ListStrategies)
	group.GET("/players", optimizerHandler.RankPlayers)

	group.POST("/optimize", optimizerHandler.Optimize)
	group.POST("/optimize/compare", optimizerHandler.Compare)
	group.POST("/optimize/lineup", optimizerHandler.Lineup)

	group.POST("/transfers", transferHandler.SuggestTransfers)
}
