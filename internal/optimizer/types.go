package optimizer

import (
	"fmt"
	"strings"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// Metric identifies one normalized input of the valuation model.
type Metric int

const (
	MetricForm Metric = iota
	MetricTotalPoints
	MetricExpectedGoals
	MetricExpectedAssists
	MetricDefensiveActions
	MetricCleanSheets
	MetricFixtureEase
	MetricDifferential
	MetricAffordability

	metricCount
)

var metricNames = [metricCount]string{
	"form",
	"total_points",
	"expected_goals",
	"expected_assists",
	"defensive_actions",
	"clean_sheets",
	"fixture_ease",
	"differential",
	"affordability",
}

// AllMetrics lists the metrics in weight-vector order.
func AllMetrics() []Metric {
	out := make([]Metric, metricCount)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

func (m Metric) String() string {
	if m < 0 || m >= metricCount {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricNames[m]
}

func ParseMetric(name string) (Metric, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range metricNames {
		if candidate == n {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// MetricVector holds one value per metric, indexed by Metric.
type MetricVector [metricCount]float64

// ScoredPlayer is a pool player valued under one strategy.
type ScoredPlayer struct {
	models.Player
	Strategy  Strategy           `json:"strategy"`
	Value     float64            `json:"value"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// lessByTieBreak orders players by value desc, then price asc, then id asc.
func lessByTieBreak(a, b *ScoredPlayer) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.ID < b.ID
}

// Squad is a complete 15-player selection.
type Squad struct {
	Players       []ScoredPlayer `json:"players"`
	TotalValue    float64        `json:"total_value"`
	TotalPrice    models.Price   `json:"total_price"`
	Budget        models.Price   `json:"budget"`
	Mode          SolverMode     `json:"mode"`
	Approximate   bool           `json:"approximate"`
	NodesExplored int64          `json:"nodes_explored,omitempty"`
}

// PlayerIDs returns the ids of the squad in squad order.
func (s *Squad) PlayerIDs() []int {
	ids := make([]int, len(s.Players))
	for i := range s.Players {
		ids[i] = s.Players[i].ID
	}
	return ids
}

// RemainingBudget is the unspent part of the budget.
func (s *Squad) RemainingBudget() models.Price {
	return s.Budget - s.TotalPrice
}
