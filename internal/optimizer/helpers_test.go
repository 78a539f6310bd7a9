package optimizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/pkg/logger"
)

// generatePool builds a deterministic pool with counts[pos] players per
// position spread across clubs.
func generatePool(seed int64, counts map[models.Position]int, clubs int, minPrice, priceRange int) []models.Player {
	rng := rand.New(rand.NewSource(seed))
	var players []models.Player
	id := 1
	for _, pos := range models.Positions {
		for i := 0; i < counts[pos]; i++ {
			minutes := 300 + rng.Intn(2400)
			players = append(players, models.Player{
				ID:       id,
				Name:     pos.String() + "-" + string(rune('A'+i%26)),
				ClubID:   1 + (id*7)%clubs,
				Position: pos,
				Price:    models.Price(minPrice + rng.Intn(priceRange)),
				Status:   "a",
				Stats: models.PlayerStats{
					Form:             models.Float(rng.Float64() * 10),
					TotalPoints:      models.Float(float64(rng.Intn(200))),
					PointsPerGame:    models.Float(rng.Float64() * 8),
					ExpectedGoals:    models.Float(rng.Float64() * 12),
					ExpectedAssists:  models.Float(rng.Float64() * 8),
					DefensiveActions: models.Float(float64(rng.Intn(120))),
					CleanSheets:      models.Float(float64(rng.Intn(15))),
					Ownership:        models.Float(rng.Float64() * 60),
					Minutes:          minutes,
				},
				UpcomingDifficulty: []float64{float64(2 + rng.Intn(4)), float64(2 + rng.Intn(4))},
			})
			id++
		}
	}
	return players
}

func smallPool() []models.Player {
	return generatePool(42, map[models.Position]int{
		models.Goalkeeper: 3,
		models.Defender:   7,
		models.Midfielder: 6,
		models.Forward:    4,
	}, 6, 40, 55)
}

func largePool() []models.Player {
	return generatePool(7, map[models.Position]int{
		models.Goalkeeper: 12,
		models.Defender:   36,
		models.Midfielder: 40,
		models.Forward:    22,
	}, 20, 40, 90)
}

func newTestEngine(t *testing.T, mutate func(*EngineConfig)) *Engine {
	t.Helper()
	cfg := DefaultEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg, logger.NewDiscardLogger())
	require.NoError(t, err)
	return e
}

// sp is a hand-built scored player for selector and transfer tests.
func sp(id, club int, pos models.Position, price int, value float64) ScoredPlayer {
	return ScoredPlayer{
		Player: models.Player{
			ID:       id,
			Name:     pos.String(),
			ClubID:   club,
			Position: pos,
			Price:    models.Price(price),
			Status:   "a",
			Stats:    models.PlayerStats{Minutes: 900},
		},
		Strategy: StrategyBalanced,
		Value:    value,
	}
}

// validSquad returns 15 players on 15 clubs, each priced 5.0 and valued 5.
func validSquad() []ScoredPlayer {
	positions := []models.Position{
		models.Goalkeeper, models.Goalkeeper,
		models.Defender, models.Defender, models.Defender, models.Defender, models.Defender,
		models.Midfielder, models.Midfielder, models.Midfielder, models.Midfielder, models.Midfielder,
		models.Forward, models.Forward, models.Forward,
	}
	squad := make([]ScoredPlayer, len(positions))
	for i, pos := range positions {
		squad[i] = sp(i+1, i+1, pos, 50, 5)
	}
	return squad
}

func ids(players []ScoredPlayer) []int {
	out := make([]int, len(players))
	for i := range players {
		out[i] = players[i].ID
	}
	return out
}

func assertValidSquad(t *testing.T, rules SquadRules, squad *Squad) {
	t.Helper()
	require.NotNil(t, squad)
	require.NoError(t, rules.ValidateSquad(squad.Players))
}
