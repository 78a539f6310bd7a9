package services

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// DefaultFixtureHorizon is the number of gameweeks looked ahead.
const DefaultFixtureHorizon = 5

// ComputeFixtureDifficulty collects each club's own difficulty rating for
// the unfinished fixtures in gameweeks [current, current+horizon). A double
// gameweek is averaged into one entry; blank gameweeks stay absent.
func ComputeFixtureDifficulty(fixtures []models.Fixture, current, horizon int) models.FixtureDifficulty {
	if horizon <= 0 {
		horizon = DefaultFixtureHorizon
	}
	last := current + horizon - 1

	ratings := make(map[int]map[int][]float64)
	add := func(club, gw, difficulty int) {
		byGW, ok := ratings[club]
		if !ok {
			byGW = make(map[int][]float64)
			ratings[club] = byGW
		}
		byGW[gw] = append(byGW[gw], float64(difficulty))
	}

	for _, f := range fixtures {
		if f.Finished || f.Gameweek == nil {
			continue
		}
		gw := *f.Gameweek
		if gw < current || gw > last {
			continue
		}
		add(f.HomeClubID, gw, f.HomeDifficulty)
		add(f.AwayClubID, gw, f.AwayDifficulty)
	}

	out := make(models.FixtureDifficulty, len(ratings))
	for club, byGW := range ratings {
		gameweeks := make([]int, 0, len(byGW))
		for gw := range byGW {
			gameweeks = append(gameweeks, gw)
		}
		sort.Ints(gameweeks)

		cd := models.ClubDifficulty{
			ClubID:     club,
			ByGameweek: make(map[int]float64, len(byGW)),
			Sequence:   make([]float64, 0, len(byGW)),
		}
		for _, gw := range gameweeks {
			v := stat.Mean(byGW[gw], nil)
			cd.ByGameweek[gw] = v
			cd.Sequence = append(cd.Sequence, v)
		}
		avg := stat.Mean(cd.Sequence, nil)
		cd.Average = &avg
		out[club] = cd
	}
	return out
}

// AttachDifficulty copies each club's difficulty sequence onto its players.
// Players of clubs without fixtures in the horizon get no sequence.
func AttachDifficulty(players []models.Player, difficulty models.FixtureDifficulty) {
	for i := range players {
		cd, ok := difficulty[players[i].ClubID]
		if !ok {
			players[i].UpcomingDifficulty = nil
			continue
		}
		players[i].UpcomingDifficulty = append([]float64(nil), cd.Sequence...)
	}
}
