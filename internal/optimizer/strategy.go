package optimizer

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Strategy names a weighting of the valuation metrics.
type Strategy string

const (
	StrategyBalanced     Strategy = "balanced"
	StrategyForm         Strategy = "form"
	StrategyExpected     Strategy = "expected"
	StrategyFixture      Strategy = "fixture"
	StrategyDifferential Strategy = "differential"
	StrategyDefensive    Strategy = "defensive"
)

// Strategies lists every strategy in presentation order.
var Strategies = []Strategy{
	StrategyBalanced,
	StrategyForm,
	StrategyExpected,
	StrategyFixture,
	StrategyDifferential,
	StrategyDefensive,
}

var strategyDescriptions = map[Strategy]string{
	StrategyBalanced:     "Even mix of form, output, underlying numbers, fixtures and price",
	StrategyForm:         "Players in the best recent form",
	StrategyExpected:     "Expected goals and assists per 90",
	StrategyFixture:      "Easiest upcoming fixtures",
	StrategyDifferential: "Low-ownership picks that still produce",
	StrategyDefensive:    "Clean sheets and defensive actions",
}

// ParseStrategy resolves a strategy name. Unknown names are an error, never
// a silent default.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := strategyDescriptions[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
	}
	return s, nil
}

func (s Strategy) Description() string {
	return strategyDescriptions[s]
}

// Weights is a weight per metric, indexed by Metric.
type Weights MetricVector

const weightSumTolerance = 1e-6

// Validate checks that weights are non-negative and sum to one.
func (w Weights) Validate() error {
	var sum float64
	for m, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has weight %v", ErrInvalidWeights, Metric(m), v)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.6f, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// Map returns the non-zero weights keyed by metric name.
func (w Weights) Map() map[string]float64 {
	out := make(map[string]float64)
	for m, v := range w {
		if v != 0 {
			out[Metric(m).String()] = v
		}
	}
	return out
}

// WeightsFromMap builds a weight vector from metric names. Metrics that are
// not named get zero weight.
func WeightsFromMap(values map[string]float64) (Weights, error) {
	var w Weights
	for name, v := range values {
		m, err := ParseMetric(name)
		if err != nil {
			return Weights{}, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		w[m] = v
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// WeightTable holds one weight vector per strategy.
type WeightTable map[Strategy]Weights

// Columns: form, total points, xG, xA, defensive actions, clean sheets,
// fixture ease, differential, affordability.
var defaultWeights = WeightTable{
	StrategyBalanced:     {0.15, 0.15, 0.12, 0.12, 0.10, 0.08, 0.12, 0.06, 0.10},
	StrategyForm:         {0.50, 0.15, 0.08, 0.08, 0.04, 0.03, 0.07, 0, 0.05},
	StrategyExpected:     {0.10, 0.10, 0.30, 0.25, 0.05, 0.05, 0.10, 0, 0.05},
	StrategyFixture:      {0.15, 0.10, 0.08, 0.07, 0.05, 0.05, 0.45, 0, 0.05},
	StrategyDifferential: {0.15, 0.15, 0.10, 0.10, 0.025, 0.025, 0.10, 0.35, 0},
	StrategyDefensive:    {0.10, 0.10, 0.03, 0.02, 0.35, 0.25, 0.10, 0, 0.05},
}

// DefaultWeightTable returns a copy of the built-in weights.
func DefaultWeightTable() WeightTable {
	table := make(WeightTable, len(defaultWeights))
	for s, w := range defaultWeights {
		table[s] = w
	}
	return table
}

// WithOverrides replaces the vectors of the named strategies. Every override
// is validated; unknown strategy names are rejected.
func (t WeightTable) WithOverrides(overrides map[string]map[string]float64) (WeightTable, error) {
	table := make(WeightTable, len(t))
	for s, w := range t {
		table[s] = w
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		strategy, err := ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		w, err := WeightsFromMap(overrides[name])
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", strategy, err)
		}
		table[strategy] = w
	}
	return table, nil
}

// Validate checks every vector in the table.
func (t WeightTable) Validate() error {
	for _, s := range Strategies {
		w, ok := t[s]
		if !ok {
			return fmt.Errorf("%w: no weights for strategy %s", ErrInvalidWeights, s)
		}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("strategy %s: %w", s, err)
		}
	}
	return nil
}
