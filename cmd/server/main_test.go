package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/internal/optimizer"
	"github.com/Kevocado/FPL-Optimizer/pkg/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		BudgetCap:          95.5,
		MaxPlayersPerClub:  2,
		SolverMode:         "greedy",
		Normalization:      "zscore",
		MinMinutes:         300,
		MinChanceOfPlaying: 50,
		TransferLimit:      2,
		FreeTransfers:      1,
	}
}

func TestEngineConfig(t *testing.T) {
	ec, err := engineConfig(baseConfig())
	require.NoError(t, err)

	assert.Equal(t, models.Price(955), ec.Rules.Budget)
	assert.Equal(t, 2, ec.Rules.MaxPerClub)
	assert.Equal(t, optimizer.SolverGreedy, ec.Mode)
	assert.Equal(t, optimizer.NormalizeZScore, ec.Normalization)
	assert.Equal(t, 300, ec.MinMinutes)
	assert.Equal(t, 50, ec.MinChanceOfPlaying)
	assert.Equal(t, 2, ec.TransferLimit)

	_, err = optimizer.NewEngine(ec, nil)
	assert.NoError(t, err)
}

func TestEngineConfigRejectsBadValues(t *testing.T) {
	cfg := baseConfig()
	cfg.SolverMode = "annealing"
	_, err := engineConfig(cfg)
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.Normalization = "rank"
	_, err = engineConfig(cfg)
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.StrategyWeights = map[string]map[string]float64{"form": {"form": 2}}
	_, err = engineConfig(cfg)
	assert.ErrorIs(t, err, optimizer.ErrInvalidWeights)
}
