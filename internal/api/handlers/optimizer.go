package handlers

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kevocado/FPL-Optimizer/internal/api/middleware"
	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/internal/services"
	"github.com/Kevocado/FPL-Optimizer/pkg/utils"
)

const resultCacheTTL = 15 * time.Minute

type OptimizerHandler struct {
	engine *optimizer.Engine
	pool   PoolSource
	cache  services.Cache
	logger *logrus.Logger
}

// NewOptimizerHandler creates the squad endpoints. cache may be nil.
func NewOptimizerHandler(engine *optimizer.Engine, pool PoolSource, cache services.Cache, logger *logrus.Logger) *OptimizerHandler {
	return &OptimizerHandler{
		engine: engine,
		pool:   pool,
		cache:  cache,
		logger: logger,
	}
}

type optimizeRequest struct {
	Strategy string `json:"strategy"`
	// Budget in millions; the configured cap applies when omitted.
	Budget    *float64           `json:"budget" binding:"omitempty,gt=0"`
	Mode      string             `json:"mode"`
	Locked    []int              `json:"locked_players"`
	Excluded  []int              `json:"excluded_players"`
	MaxPrice  map[string]float64 `json:"max_price"`
	Formation string             `json:"formation"`
}

func (r *optimizeRequest) toEngine() (optimizer.OptimizeRequest, error) {
	out := optimizer.OptimizeRequest{
		Strategy:  r.Strategy,
		Locked:    r.Locked,
		Excluded:  r.Excluded,
		Formation: r.Formation,
	}
	if r.Budget != nil {
		budget := models.PriceFromMillions(*r.Budget)
		out.Budget = &budget
	}
	if r.Mode != "" {
		mode, err := optimizer.ParseSolverMode(r.Mode)
		if err != nil {
			return out, err
		}
		out.Mode = mode
	}
	if len(r.MaxPrice) > 0 {
		out.MaxPrice = make(map[models.Position]models.Price, len(r.MaxPrice))
		for name, millions := range r.MaxPrice {
			pos, err := models.ParsePosition(name)
			if err != nil {
				return out, err
			}
			out.MaxPrice[pos] = models.PriceFromMillions(millions)
		}
	}
	return out, nil
}

// hashRequest keys the result cache on the normalized request body.
func hashRequest(req interface{}) string {
	data, _ := json.Marshal(req)
	return fmt.Sprintf("%x", sha256.Sum256(data))[:16]
}

type strategyInfo struct {
	Name        optimizer.Strategy `json:"name"`
	Description string             `json:"description"`
	Weights     map[string]float64 `json:"weights"`
}

// ListStrategies returns every strategy with the weights in use
func (h *OptimizerHandler) ListStrategies(c *gin.Context) {
	out := make([]strategyInfo, 0, len(optimizer.Strategies))
	for _, s := range optimizer.Strategies {
		w, err := h.engine.Weights(s)
		if err != nil {
			sendError(c, err)
			return
		}
		out = append(out, strategyInfo{Name: s, Description: s.Description(), Weights: w.Map()})
	}
	utils.SendSuccess(c, out)
}

// RankPlayers returns the top valued players for a strategy
func (h *OptimizerHandler) RankPlayers(c *gin.Context) {
	started := time.Now()
	strategy := c.DefaultQuery("strategy", string(optimizer.StrategyBalanced))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		utils.SendValidationError(c, "Invalid limit", c.Query("limit"))
		return
	}

	snap, err := h.pool.Snapshot(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	ranked, err := h.engine.RankPlayers(snap.Players, strategy, limit)
	if err != nil {
		sendError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, ranked, snapshotMeta(h.pool, snap, started))
}

// Optimize selects the best squad and starting lineup
func (h *OptimizerHandler) Optimize(c *gin.Context) {
	started := time.Now()

	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	engineReq, err := req.toEngine()
	if err != nil {
		utils.SendValidationError(c, "Invalid request", err.Error())
		return
	}

	ctx := c.Request.Context()
	snap, err := h.pool.Snapshot(ctx)
	if err != nil {
		sendError(c, err)
		return
	}

	cacheKey := services.OptimizationCacheKey(snap.Gameweek, req.Strategy, hashRequest(req)+"-"+strconv.FormatInt(snap.FetchedAt.Unix(), 10))
	if h.cache != nil {
		var cached optimizer.OptimizeResult
		if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
			h.logger.WithField("cache_key", cacheKey).Debug("Serving cached optimization")
			c.Set(middleware.OptimizationIDKey, cached.ID)
			utils.SendSuccessWithMeta(c, &cached, snapshotMeta(h.pool, snap, started))
			return
		}
	}

	result, err := h.engine.OptimizeSquad(ctx, snap.Players, engineReq)
	if err != nil {
		sendError(c, err)
		return
	}
	c.Set(middleware.OptimizationIDKey, result.ID)

	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, result, resultCacheTTL); err != nil {
			h.logger.WithError(err).Warn("Failed to cache optimization result")
		}
	}
	utils.SendSuccessWithMeta(c, result, snapshotMeta(h.pool, snap, started))
}

// Compare optimizes the pool under every strategy
func (h *OptimizerHandler) Compare(c *gin.Context) {
	started := time.Now()

	// the body is optional and its strategy is ignored
	var req optimizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}
	engineReq, err := req.toEngine()
	if err != nil {
		utils.SendValidationError(c, "Invalid request", err.Error())
		return
	}

	snap, err := h.pool.Snapshot(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	comparison, err := h.engine.CompareStrategies(c.Request.Context(), snap.Players, engineReq)
	if err != nil {
		sendError(c, err)
		return
	}
	c.Set(middleware.OptimizationIDKey, comparison.ID)
	utils.SendSuccessWithMeta(c, comparison, snapshotMeta(h.pool, snap, started))
}

type lineupRequest struct {
	Strategy  string `json:"strategy" binding:"required"`
	PlayerIDs []int  `json:"player_ids" binding:"required,len=15"`
	Formation string `json:"formation"`
}

// Lineup picks the starting eleven, captain and vice-captain of a squad
func (h *OptimizerHandler) Lineup(c *gin.Context) {
	started := time.Now()

	var req lineupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	snap, err := h.pool.Snapshot(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	lineup, err := h.engine.Lineup(snap.Players, optimizer.LineupRequest{
		Strategy:  req.Strategy,
		PlayerIDs: req.PlayerIDs,
		Formation: req.Formation,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, lineup, snapshotMeta(h.pool, snap, started))
}
