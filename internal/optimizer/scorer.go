package optimizer

import (
	"fmt"
	"sort"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// ScoreScale maps the weighted [0,1] sum onto a 0-10 value.
const ScoreScale = 10.0

// Scorer values normalized players under a strategy.
type Scorer struct {
	weights WeightTable
}

func NewScorer(weights WeightTable) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeightTable()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights}, nil
}

func (s *Scorer) Weights(strategy Strategy) (Weights, error) {
	w, ok := s.weights[strategy]
	if !ok {
		return Weights{}, fmt.Errorf("%w: %q", ErrInvalidStrategy, string(strategy))
	}
	return w, nil
}

// Score values every player. normalized must hold a vector for each player
// id; players missing from it are valued on neutral metrics.
func (s *Scorer) Score(players []models.Player, normalized map[int]MetricVector, strategy Strategy) ([]ScoredPlayer, error) {
	w, err := s.Weights(strategy)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredPlayer, len(players))
	for i := range players {
		vec, ok := normalized[players[i].ID]
		if !ok {
			for m := range vec {
				vec[m] = neutralScore
			}
		}

		breakdown := make(map[string]float64, metricCount)
		var total float64
		for m, weight := range w {
			if weight == 0 {
				continue
			}
			contribution := ScoreScale * weight * vec[m]
			breakdown[Metric(m).String()] = contribution
			total += contribution
		}

		scored[i] = ScoredPlayer{
			Player:    players[i],
			Strategy:  strategy,
			Value:     clampValue(total),
			Breakdown: breakdown,
		}
	}
	return scored, nil
}

func clampValue(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > ScoreScale {
		return ScoreScale
	}
	return v
}

// RankPlayers sorts a copy of scored in tie-break order. The defensive
// strategy only ranks goalkeepers and defenders. limit <= 0 keeps everyone.
func RankPlayers(scored []ScoredPlayer, strategy Strategy, limit int) []ScoredPlayer {
	ranked := make([]ScoredPlayer, 0, len(scored))
	for i := range scored {
		if strategy == StrategyDefensive &&
			scored[i].Position != models.Goalkeeper && scored[i].Position != models.Defender {
			continue
		}
		ranked = append(ranked, scored[i])
	}
	sortByTieBreak(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func sortByTieBreak(players []ScoredPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		return lessByTieBreak(&players[i], &players[j])
	})
}

// sortBySquadOrder orders by position, then tie-break.
func sortBySquadOrder(players []ScoredPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Position != players[j].Position {
			return players[i].Position < players[j].Position
		}
		return lessByTieBreak(&players[i], &players[j])
	})
}
