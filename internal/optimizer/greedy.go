package optimizer

import (
	"fmt"
	"sort"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// solveGreedy walks the pool in tie-break order and takes every player that
// fits, keeping enough budget back to complete the squad with the cheapest
// remaining players. It can miss the optimum and can fail on tight budgets
// the exact solver would satisfy.
func solveGreedy(in *solverInput) ([]ScoredPlayer, error) {
	ordered := make([]ScoredPlayer, len(in.candidates))
	copy(ordered, in.candidates)
	sortByTieBreak(ordered)

	// Per-position candidate indices, cheapest first.
	cheapFirst := make(map[models.Position][]int)
	for i := range ordered {
		cheapFirst[ordered[i].Position] = append(cheapFirst[ordered[i].Position], i)
	}
	for _, idx := range cheapFirst {
		sort.SliceStable(idx, func(a, b int) bool {
			return ordered[idx[a]].Price < ordered[idx[b]].Price
		})
	}

	need := copyQuotas(in.quotas)
	clubs := make(map[int]int, len(in.clubCounts))
	for club, n := range in.clubCounts {
		clubs[club] = n
	}
	budget := in.budget
	remaining := in.picksNeeded()
	taken := make([]bool, len(ordered))
	picks := make([]ScoredPlayer, 0, remaining)

	for i := range ordered {
		if remaining == 0 {
			break
		}
		p := &ordered[i]
		price := int(p.Price)
		if need[p.Position] == 0 || clubs[p.ClubID] >= in.maxPerClub || price > budget {
			continue
		}

		need[p.Position]--
		taken[i] = true
		reserve, ok := cheapestCompletion(ordered, cheapFirst, taken, need)
		if !ok || price+reserve > budget {
			need[p.Position]++
			taken[i] = false
			continue
		}

		clubs[p.ClubID]++
		budget -= price
		remaining--
		picks = append(picks, *p)
	}

	if remaining > 0 {
		return nil, fmt.Errorf("%w: greedy selection left %d slots unfilled", ErrInfeasibleSquad, remaining)
	}
	return picks, nil
}

// cheapestCompletion is the minimum spend to fill need from untaken players,
// ignoring club caps.
func cheapestCompletion(ordered []ScoredPlayer, cheapFirst map[models.Position][]int, taken []bool, need map[models.Position]int) (int, bool) {
	total := 0
	for pos, n := range need {
		if n == 0 {
			continue
		}
		for _, idx := range cheapFirst[pos] {
			if n == 0 {
				break
			}
			if taken[idx] {
				continue
			}
			total += int(ordered[idx].Price)
			n--
		}
		if n > 0 {
			return 0, false
		}
	}
	return total, true
}
