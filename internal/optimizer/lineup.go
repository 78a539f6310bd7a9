package optimizer

import (
	"fmt"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

const (
	captainMultiplier = 2
)

// Lineup is the starting eleven picked from a squad.
type Lineup struct {
	Formation     Formation      `json:"formation"`
	Starters      []ScoredPlayer `json:"starters"`
	Bench         []ScoredPlayer `json:"bench"`
	CaptainID     int            `json:"captain_id"`
	ViceCaptainID int            `json:"vice_captain_id"`
	// Multipliers applied to the captain, and to the vice-captain when the
	// captain does not play.
	CaptainMultiplier     int     `json:"captain_multiplier"`
	ViceCaptainMultiplier int     `json:"vice_captain_multiplier"`
	StartingValue         float64 `json:"starting_value"`
	// ProjectedValue counts the captain twice.
	ProjectedValue float64 `json:"projected_value"`
}

// BestLineup picks the formation whose starters have the highest total
// value. Ties keep the first formation in ValidFormations order.
func BestLineup(squad []ScoredPlayer) (*Lineup, error) {
	groups, err := groupForLineup(squad)
	if err != nil {
		return nil, err
	}

	var (
		best      Formation
		bestValue float64
		found     bool
	)
	for _, f := range ValidFormations() {
		value, ok := formationValue(groups, f)
		if !ok {
			continue
		}
		if !found || value > bestValue+valueEps {
			best, bestValue, found = f, value, true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: squad cannot field any valid formation", ErrConstraintViolation)
	}
	return buildLineup(groups, best), nil
}

// LineupForFormation builds the lineup for a named formation such as "4-4-2".
func LineupForFormation(squad []ScoredPlayer, name string) (*Lineup, error) {
	f, err := ParseFormation(name)
	if err != nil {
		return nil, err
	}
	groups, err := groupForLineup(squad)
	if err != nil {
		return nil, err
	}
	if _, ok := formationValue(groups, f); !ok {
		return nil, fmt.Errorf("%w: squad has too few players for %s", ErrInvalidFormation, f)
	}
	return buildLineup(groups, f), nil
}

func groupForLineup(squad []ScoredPlayer) (map[models.Position][]ScoredPlayer, error) {
	if len(squad) < startersCount {
		return nil, fmt.Errorf("%w: need at least %d players, got %d", ErrConstraintViolation, startersCount, len(squad))
	}
	groups := make(map[models.Position][]ScoredPlayer)
	for _, p := range squad {
		groups[p.Position] = append(groups[p.Position], p)
	}
	for pos := range groups {
		sortByTieBreak(groups[pos])
	}
	return groups, nil
}

func formationValue(groups map[models.Position][]ScoredPlayer, f Formation) (float64, bool) {
	var total float64
	for _, pos := range models.Positions {
		n := f.count(pos)
		if len(groups[pos]) < n {
			return 0, false
		}
		for i := 0; i < n; i++ {
			total += groups[pos][i].Value
		}
	}
	return total, true
}

func buildLineup(groups map[models.Position][]ScoredPlayer, f Formation) *Lineup {
	l := &Lineup{
		Formation:             f,
		CaptainMultiplier:     captainMultiplier,
		ViceCaptainMultiplier: captainMultiplier,
	}

	var outfieldBench []ScoredPlayer
	for _, pos := range models.Positions {
		n := f.count(pos)
		l.Starters = append(l.Starters, groups[pos][:n]...)
		if pos == models.Goalkeeper {
			l.Bench = append(l.Bench, groups[pos][n:]...)
		} else {
			outfieldBench = append(outfieldBench, groups[pos][n:]...)
		}
	}
	sortByTieBreak(outfieldBench)
	l.Bench = append(l.Bench, outfieldBench...)

	ranked := make([]ScoredPlayer, len(l.Starters))
	copy(ranked, l.Starters)
	sortByTieBreak(ranked)
	l.CaptainID = ranked[0].ID
	if len(ranked) > 1 {
		l.ViceCaptainID = ranked[1].ID
	}

	l.StartingValue = totalValue(l.Starters)
	l.ProjectedValue = l.StartingValue + float64(captainMultiplier-1)*ranked[0].Value
	return l
}
