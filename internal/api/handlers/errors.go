package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/internal/services"
	"github.com/Kevocado/FPL-Optimizer/pkg/utils"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{optimizer.ErrInvalidStrategy, http.StatusBadRequest, utils.ErrCodeInvalidStrategy, "Unknown strategy"},
	{optimizer.ErrInvalidFormation, http.StatusBadRequest, utils.ErrCodeInvalidFormation, "Invalid formation"},
	{optimizer.ErrUnknownPlayer, http.StatusBadRequest, utils.ErrCodeUnknownPlayer, "Unknown player"},
	{optimizer.ErrInfeasibleSquad, http.StatusUnprocessableEntity, utils.ErrCodeInfeasibleSquad, "No squad satisfies the constraints"},
	{optimizer.ErrInsufficientBudget, http.StatusUnprocessableEntity, utils.ErrCodeInsufficientBudget, "Insufficient budget"},
	{optimizer.ErrNoFeasibleTransfer, http.StatusUnprocessableEntity, utils.ErrCodeNoFeasibleTransfer, "No feasible transfer"},
	{optimizer.ErrConstraintViolation, http.StatusUnprocessableEntity, utils.ErrCodeConstraint, "Squad breaks the game rules"},
	{optimizer.ErrTimeout, http.StatusGatewayTimeout, utils.ErrCodeTimeout, "Optimization timed out"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, utils.ErrCodeTimeout, "Request timed out"},
	{services.ErrEntryNotFound, http.StatusNotFound, utils.ErrCodeNotFound, "FPL entry not found"},
	{services.ErrNoEntrySquad, http.StatusNotFound, utils.ErrCodeNotFound, "FPL entry has no squad yet"},
	{services.ErrDataUnavailable, http.StatusServiceUnavailable, utils.ErrCodeUnavailable, "Player data is unavailable"},
}

// sendError renders err with the status and code of its sentinel.
func sendError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		switch m.status {
		case http.StatusNotFound:
			utils.SendNotFound(c, m.message, err.Error())
		case http.StatusServiceUnavailable:
			utils.SendUnavailable(c, m.message, err.Error())
		default:
			utils.SendError(c, m.status, utils.NewAppError(m.code, m.message, err.Error()))
		}
		return
	}
	_ = c.Error(err)
	utils.SendInternalError(c, "Unexpected error")
}
