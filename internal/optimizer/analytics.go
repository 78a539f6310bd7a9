package optimizer

import (
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	differentialOwnership = 10.0
	templateOwnership     = 30.0
	neutralDifficulty     = 3.0
	fullChance            = 100
)

// SquadAnalysis summarizes the make-up of a squad.
type SquadAnalysis struct {
	TotalExpectedGoals   float64        `json:"total_expected_goals"`
	TotalExpectedAssists float64        `json:"total_expected_assists"`
	AverageOwnership     float64        `json:"average_ownership"`
	DifferentialCount    int            `json:"differential_count"`
	TemplateCount        int            `json:"template_count"`
	AverageDifficulty    float64        `json:"average_fixture_difficulty"`
	InjuryConcerns       int            `json:"injury_concerns"`
	ClubCounts           map[string]int `json:"club_counts"`
	ValuePerMillion      float64        `json:"value_per_million"`
}

// AnalyzeSquad computes the composition summary of any set of players.
// Players with unknown fixtures count as neutral difficulty.
func AnalyzeSquad(players []ScoredPlayer) SquadAnalysis {
	a := SquadAnalysis{ClubCounts: make(map[string]int)}
	if len(players) == 0 {
		return a
	}

	xg := make([]float64, 0, len(players))
	xa := make([]float64, 0, len(players))
	ownership := make([]float64, 0, len(players))
	difficulty := make([]float64, len(players))

	for i := range players {
		p := &players[i]
		s := &p.Stats
		if s.ExpectedGoals != nil {
			xg = append(xg, *s.ExpectedGoals)
		}
		if s.ExpectedAssists != nil {
			xa = append(xa, *s.ExpectedAssists)
		}
		if s.Ownership != nil {
			ownership = append(ownership, *s.Ownership)
			if *s.Ownership < differentialOwnership {
				a.DifferentialCount++
			}
			if *s.Ownership > templateOwnership {
				a.TemplateCount++
			}
		}
		if d, ok := p.MeanDifficulty(); ok {
			difficulty[i] = d
		} else {
			difficulty[i] = neutralDifficulty
		}
		if p.ChanceOfPlaying != nil && *p.ChanceOfPlaying < fullChance {
			a.InjuryConcerns++
		}

		club := p.Club
		if club == "" {
			club = clubKey(p.ClubID)
		}
		a.ClubCounts[club]++
	}

	a.TotalExpectedGoals = floats.Sum(xg)
	a.TotalExpectedAssists = floats.Sum(xa)
	if len(ownership) > 0 {
		a.AverageOwnership = stat.Mean(ownership, nil)
	}
	a.AverageDifficulty = stat.Mean(difficulty, nil)

	if spend := totalPrice(players).Millions(); spend > 0 {
		a.ValuePerMillion = totalValue(players) / spend
	}
	return a
}

func clubKey(id int) string {
	return "club-" + strconv.Itoa(id)
}
