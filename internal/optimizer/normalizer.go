package optimizer

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// NormalizationMethod selects how raw metrics are rescaled onto [0,1].
type NormalizationMethod string

const (
	NormalizeMinMax NormalizationMethod = "minmax"
	NormalizeZScore NormalizationMethod = "zscore"
)

const (
	neutralScore = 0.5
	zScoreClamp  = 3.0
	varianceEps  = 1e-12
	minutesPer90 = 90.0
)

func ParseNormalizationMethod(s string) (NormalizationMethod, error) {
	switch NormalizationMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", NormalizeMinMax:
		return NormalizeMinMax, nil
	case NormalizeZScore:
		return NormalizeZScore, nil
	}
	return "", fmt.Errorf("unknown normalization method %q", s)
}

// Normalizer turns raw player statistics into comparable [0,1] metrics.
type Normalizer struct {
	method NormalizationMethod
}

func NewNormalizer(method NormalizationMethod) *Normalizer {
	if method == "" {
		method = NormalizeMinMax
	}
	return &Normalizer{method: method}
}

func (n *Normalizer) Method() NormalizationMethod {
	return n.method
}

// Normalize rescales every metric across the pool. The result is keyed by
// player id and depends only on the pool passed in.
func (n *Normalizer) Normalize(players []models.Player) map[int]MetricVector {
	out := make(map[int]MetricVector, len(players))
	if len(players) == 0 {
		return out
	}

	raw := make([]float64, len(players))
	present := make([]bool, len(players))
	scaled := make([][]float64, metricCount)

	for _, metric := range AllMetrics() {
		for i := range players {
			raw[i], present[i] = rawMetric(&players[i], metric)
		}
		inverted := invertedMetric(metric)
		scaled[metric] = n.scale(raw, present, inverted)
		if inverted {
			for i := range scaled[metric] {
				scaled[metric][i] = 1 - scaled[metric][i]
			}
		}
	}

	for i := range players {
		var v MetricVector
		for m := range v {
			v[m] = scaled[m][i]
		}
		out[players[i].ID] = v
	}
	return out
}

// scale fills missing values with the least favourable raw value in the
// metric's direction (pool minimum, or maximum when lower is better) and
// rescales. Degenerate inputs map everyone to the neutral midpoint.
func (n *Normalizer) scale(raw []float64, present []bool, lowerIsBetter bool) []float64 {
	result := make([]float64, len(raw))

	valid := make([]float64, 0, len(raw))
	for i, ok := range present {
		if ok {
			valid = append(valid, raw[i])
		}
	}
	if len(valid) == 0 {
		for i := range result {
			result[i] = neutralScore
		}
		return result
	}

	fill := floats.Min(valid)
	if lowerIsBetter {
		fill = floats.Max(valid)
	}
	values := make([]float64, len(raw))
	for i := range raw {
		if present[i] {
			values[i] = raw[i]
		} else {
			values[i] = fill
		}
	}

	switch n.method {
	case NormalizeZScore:
		mean, std := stat.MeanStdDev(values, nil)
		if len(values) < 2 || std <= varianceEps {
			return fillNeutral(result)
		}
		for i, v := range values {
			z := (v - mean) / std
			if z > zScoreClamp {
				z = zScoreClamp
			} else if z < -zScoreClamp {
				z = -zScoreClamp
			}
			result[i] = (z + zScoreClamp) / (2 * zScoreClamp)
		}
	default:
		lo, hi := floats.Min(values), floats.Max(values)
		if hi-lo <= varianceEps {
			return fillNeutral(result)
		}
		for i, v := range values {
			result[i] = (v - lo) / (hi - lo)
		}
	}
	return result
}

func fillNeutral(result []float64) []float64 {
	for i := range result {
		result[i] = neutralScore
	}
	return result
}

// invertedMetric reports metrics where a lower raw value is better.
func invertedMetric(m Metric) bool {
	switch m {
	case MetricFixtureEase, MetricDifferential, MetricAffordability:
		return true
	}
	return false
}

func rawMetric(p *models.Player, m Metric) (float64, bool) {
	s := &p.Stats
	switch m {
	case MetricForm:
		return deref(s.Form)
	case MetricTotalPoints:
		return deref(s.TotalPoints)
	case MetricExpectedGoals:
		return per90(s.ExpectedGoals, s.Minutes)
	case MetricExpectedAssists:
		return per90(s.ExpectedAssists, s.Minutes)
	case MetricDefensiveActions:
		return per90(s.DefensiveActions, s.Minutes)
	case MetricCleanSheets:
		return per90(s.CleanSheets, s.Minutes)
	case MetricFixtureEase:
		return p.MeanDifficulty()
	case MetricDifferential:
		return deref(s.Ownership)
	case MetricAffordability:
		return float64(p.Price), true
	}
	return 0, false
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// per90 divides by at least one full match so cameo appearances cannot
// inflate a rate past regular starters.
func per90(total *float64, minutes int) (float64, bool) {
	if total == nil || minutes <= 0 {
		return 0, false
	}
	matches := math.Max(float64(minutes)/minutesPer90, 1)
	return *total / matches, true
}
