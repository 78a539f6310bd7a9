package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/internal/services"
	"github.com/Kevocado/FPL-Optimizer/pkg/utils"
)

func TestSendErrorMapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid strategy", optimizer.ErrInvalidStrategy, http.StatusBadRequest, utils.ErrCodeInvalidStrategy},
		{"infeasible", optimizer.ErrInfeasibleSquad, http.StatusUnprocessableEntity, utils.ErrCodeInfeasibleSquad},
		{"timeout", optimizer.ErrTimeout, http.StatusGatewayTimeout, utils.ErrCodeTimeout},
		{"entry missing", services.ErrEntryNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
		{"entry without squad", services.ErrNoEntrySquad, http.StatusNotFound, utils.ErrCodeNotFound},
		{"upstream down", services.ErrDataUnavailable, http.StatusServiceUnavailable, utils.ErrCodeUnavailable},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError, utils.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			wrapped := fmt.Errorf("gameweek 5: %w", tt.err)

			sendError(c, wrapped)

			assert.Equal(t, tt.status, w.Code)
			var resp utils.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.status != http.StatusInternalServerError {
				assert.Equal(t, wrapped.Error(), resp.Error.Details)
			} else {
				assert.Len(t, c.Errors, 1)
			}
		})
	}
}
