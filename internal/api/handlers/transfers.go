package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kevocado/FPL-Optimizer/internal/api/middleware"
	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/pkg/utils"
)

type TransferHandler struct {
	engine  *optimizer.Engine
	pool    PoolSource
	entries EntrySource
	logger  *logrus.Logger
}

// NewTransferHandler creates the transfer endpoint. entries may be nil, in
// which case requests must carry the current squad.
func NewTransferHandler(engine *optimizer.Engine, pool PoolSource, entries EntrySource, logger *logrus.Logger) *TransferHandler {
	return &TransferHandler{
		engine:  engine,
		pool:    pool,
		entries: entries,
		logger:  logger,
	}
}

type transferRequest struct {
	Strategy string `json:"strategy"`
	// CurrentSquad lists the held player ids. EntryID, an FPL entry id or
	// team URL, is used instead when CurrentSquad is empty.
	CurrentSquad  []int    `json:"current_squad"`
	EntryID       string   `json:"entry_id"`
	TargetSquad   []int    `json:"target_squad"`
	SearchPool    bool     `json:"search_pool"`
	MaxTransfers  *int     `json:"max_transfers" binding:"omitempty,min=0,max=15"`
	FreeTransfers *int     `json:"free_transfers" binding:"omitempty,min=0,max=5"`
	Bank          *float64 `json:"bank"`
}

type transferResponse struct {
	*optimizer.TransferAdvice
	Entry *models.EntrySquad `json:"entry,omitempty"`
}

// SuggestTransfers proposes swaps for the current squad
func (h *TransferHandler) SuggestTransfers(c *gin.Context) {
	started := time.Now()
	ctx := c.Request.Context()

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	var (
		entry   *models.EntrySquad
		current = req.CurrentSquad
		bank    models.Price
	)
	if len(current) == 0 {
		if req.EntryID == "" {
			utils.SendValidationError(c, "Missing squad", "provide current_squad or entry_id")
			return
		}
		if h.entries == nil {
			utils.SendValidationError(c, "Entry lookup is not available", "provide current_squad")
			return
		}
		entryID, err := utils.ExtractEntryID(req.EntryID)
		if err != nil {
			utils.SendValidationError(c, "Invalid entry id", err.Error())
			return
		}
		entry, err = h.entries.FetchEntrySquad(ctx, entryID)
		if err != nil {
			sendError(c, err)
			return
		}
		current = entry.PlayerIDs
		bank = entry.Bank
	}
	if req.Bank != nil {
		bank = models.PriceFromMillions(*req.Bank)
	}

	snap, err := h.pool.Snapshot(ctx)
	if err != nil {
		sendError(c, err)
		return
	}

	advice, err := h.engine.AdviseTransfers(ctx, snap.Players, optimizer.TransferRequest{
		Strategy:      req.Strategy,
		CurrentIDs:    current,
		TargetIDs:     req.TargetSquad,
		SearchPool:    req.SearchPool,
		MaxTransfers:  req.MaxTransfers,
		FreeTransfers: req.FreeTransfers,
		Bank:          bank,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	c.Set(middleware.OptimizationIDKey, advice.ID)

	utils.SendSuccessWithMeta(c, transferResponse{TransferAdvice: advice, Entry: entry}, snapshotMeta(h.pool, snap, started))
}
