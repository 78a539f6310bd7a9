package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

const (
	valueEps      = 1e-9
	ctxCheckEvery = 1024
)

var negInf = math.Inf(-1)

// bbGroup is one position's candidates with its bound table.
type bbGroup struct {
	position models.Position
	players  []ScoredPlayer
	quota    int

	// bound[i][k][b]: best value of k more players of this group from index
	// i onward plus full quotas of every later group, spending at most b and
	// ignoring club caps.
	bound []float64
}

func (g *bbGroup) at(i, k, b, width int) float64 {
	return g.bound[(i*(g.quota+1)+k)*width+b]
}

type branchAndBound struct {
	ctx        context.Context
	groups     []*bbGroup
	maxBudget  int
	maxPerClub int
	clubCounts map[int]int

	stack     []*ScoredPlayer
	best      []ScoredPlayer
	bestValue float64
	found     bool
	nodes     int64
	err       error
}

// solveExact runs a depth-first branch and bound over positions. Players are
// tried in tie-break order, taking before skipping, and a branch is pruned
// unless it can strictly beat the incumbent, so the first optimum found wins.
func solveExact(ctx context.Context, in *solverInput) ([]ScoredPlayer, int64, error) {
	if in.picksNeeded() == 0 {
		return nil, 0, nil
	}

	bb := &branchAndBound{
		ctx:        ctx,
		maxPerClub: in.maxPerClub,
		clubCounts: make(map[int]int, len(in.clubCounts)),
	}
	for club, n := range in.clubCounts {
		bb.clubCounts[club] = n
	}

	byPosition := make(map[models.Position][]ScoredPlayer)
	for _, p := range in.candidates {
		byPosition[p.Position] = append(byPosition[p.Position], p)
	}

	ceiling := 0
	for _, pos := range models.Positions {
		quota := in.quotas[pos]
		if quota == 0 {
			continue
		}
		players := byPosition[pos]
		if len(players) < quota {
			return nil, 0, fmt.Errorf("%w: only %d eligible %s players for %d slots", ErrInfeasibleSquad, len(players), pos, quota)
		}
		sortByTieBreak(players)
		players = reduceDominated(players, quota, (in.squadSize-1)/in.maxPerClub)
		bb.groups = append(bb.groups, &bbGroup{position: pos, players: players, quota: quota})
		ceiling += mostExpensive(players, quota)
	}

	// Budget beyond the priciest possible picks never binds.
	bb.maxBudget = in.budget
	if ceiling < bb.maxBudget {
		bb.maxBudget = ceiling
	}

	bb.buildBounds()
	first := bb.groups[0]
	if first.at(0, first.quota, bb.clamp(in.budget), bb.width()) == negInf {
		return nil, 0, fmt.Errorf("%w: budget %s cannot cover the cheapest squad", ErrInfeasibleSquad, models.Price(in.budget))
	}

	bb.search(0, 0, first.quota, in.budget, 0)
	if bb.err != nil {
		return nil, bb.nodes, timeoutError(bb.err)
	}
	if !bb.found {
		return nil, bb.nodes, fmt.Errorf("%w: no squad satisfies the club limit within budget", ErrInfeasibleSquad)
	}
	return bb.best, bb.nodes, nil
}

func (bb *branchAndBound) width() int {
	return bb.maxBudget + 1
}

func (bb *branchAndBound) clamp(b int) int {
	if b > bb.maxBudget {
		return bb.maxBudget
	}
	return b
}

// buildBounds fills the bound tables from the last group backwards, so each
// group's table already accounts for every later group.
func (bb *branchAndBound) buildBounds() {
	width := bb.width()

	for g := len(bb.groups) - 1; g >= 0; g-- {
		grp := bb.groups[g]
		var next *bbGroup
		if g+1 < len(bb.groups) {
			next = bb.groups[g+1]
		}

		n, q := len(grp.players), grp.quota
		grp.bound = make([]float64, (n+1)*(q+1)*width)

		for i := n; i >= 0; i-- {
			for k := 0; k <= q; k++ {
				row := (i*(q+1) + k) * width
				for b := 0; b < width; b++ {
					switch {
					case k == 0 && next == nil:
						grp.bound[row+b] = 0
					case k == 0:
						grp.bound[row+b] = next.at(0, next.quota, b, width)
					case i == n:
						grp.bound[row+b] = negInf
					default:
						best := grp.at(i+1, k, b, width)
						price := int(grp.players[i].Price)
						if price <= b {
							if rest := grp.at(i+1, k-1, b-price, width); rest != negInf {
								if v := grp.players[i].Value + rest; v > best {
									best = v
								}
							}
						}
						grp.bound[row+b] = best
					}
				}
			}
		}
	}
}

// search explores group g from player i with k picks still owed in that
// group and budget left.
func (bb *branchAndBound) search(g, i, k, budget int, value float64) {
	if bb.err != nil {
		return
	}
	bb.nodes++
	if bb.nodes%ctxCheckEvery == 0 {
		if err := bb.ctx.Err(); err != nil {
			bb.err = err
			return
		}
	}

	if k == 0 {
		if g+1 == len(bb.groups) {
			if !bb.found || value > bb.bestValue+valueEps {
				bb.record(value)
			}
			return
		}
		bb.search(g+1, 0, bb.groups[g+1].quota, budget, value)
		return
	}

	grp := bb.groups[g]
	if len(grp.players)-i < k {
		return
	}

	upper := grp.at(i, k, bb.clamp(budget), bb.width())
	if upper == negInf {
		return
	}
	if bb.found && value+upper <= bb.bestValue+valueEps {
		return
	}

	p := &grp.players[i]
	price := int(p.Price)
	if price <= budget && bb.clubCounts[p.ClubID] < bb.maxPerClub {
		bb.clubCounts[p.ClubID]++
		bb.stack = append(bb.stack, p)
		bb.search(g, i+1, k-1, budget-price, value+p.Value)
		bb.stack = bb.stack[:len(bb.stack)-1]
		bb.clubCounts[p.ClubID]--
	}
	bb.search(g, i+1, k, budget, value)
}

func (bb *branchAndBound) record(value float64) {
	bb.found = true
	bb.bestValue = value
	bb.best = bb.best[:0]
	for _, p := range bb.stack {
		bb.best = append(bb.best, *p)
	}
}

// reduceDominated drops a player when enough earlier, no more expensive
// players from distinct clubs exist that one of them can always replace it.
// players must be in tie-break order. fullClubs bounds how many clubs the
// rest of the squad can fill to the cap.
func reduceDominated(players []ScoredPlayer, quota, fullClubs int) []ScoredPlayer {
	threshold := quota + fullClubs
	kept := make([]ScoredPlayer, 0, len(players))
	for _, p := range players {
		clubs := make(map[int]struct{}, threshold)
		for i := range kept {
			if kept[i].Price <= p.Price {
				clubs[kept[i].ClubID] = struct{}{}
				if len(clubs) >= threshold {
					break
				}
			}
		}
		if len(clubs) >= threshold {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// mostExpensive sums the k highest prices.
func mostExpensive(players []ScoredPlayer, k int) int {
	top := make([]int, 0, k+1)
	for _, p := range players {
		top = insertSorted(top, -int(p.Price), k)
	}
	sum := 0
	for _, v := range top {
		sum -= v
	}
	return sum
}

// insertSorted inserts v into the ascending slice and keeps at most limit
// elements.
func insertSorted(s []int, v, limit int) []int {
	pos := len(s)
	for pos > 0 && s[pos-1] > v {
		pos--
	}
	if pos >= limit {
		return s
	}
	s = append(s, 0)
	copy(s[pos+1:], s[pos:])
	s[pos] = v
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
