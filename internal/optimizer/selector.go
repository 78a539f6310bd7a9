package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// SolverMode selects the squad search procedure.
type SolverMode string

const (
	// SolverExact is a branch and bound search that always returns an optimum.
	SolverExact SolverMode = "exact"
	// SolverGreedy is a fast approximation; its results are labeled approximate.
	SolverGreedy SolverMode = "greedy"
)

func ParseSolverMode(s string) (SolverMode, error) {
	switch SolverMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SolverExact:
		return SolverExact, nil
	case SolverGreedy:
		return SolverGreedy, nil
	}
	return "", fmt.Errorf("unknown solver mode %q", s)
}

// SelectionRequest describes one squad search.
type SelectionRequest struct {
	Rules SquadRules
	Mode  SolverMode

	// Locked players are always part of the squad; Excluded never are.
	Locked   []int
	Excluded []int

	MinMinutes         int
	MinChanceOfPlaying int
	MaxPrice           map[models.Position]models.Price
}

func (r *SelectionRequest) eligible(p *ScoredPlayer) bool {
	if !p.Available(r.MinChanceOfPlaying) {
		return false
	}
	if p.Stats.Minutes < r.MinMinutes {
		return false
	}
	if limit, ok := r.MaxPrice[p.Position]; ok && limit > 0 && p.Price > limit {
		return false
	}
	return true
}

// solverInput is the residual problem left once locked players are committed.
type solverInput struct {
	candidates []ScoredPlayer
	quotas     map[models.Position]int
	budget     int
	clubCounts map[int]int
	maxPerClub int
	squadSize  int
}

func (in *solverInput) picksNeeded() int {
	total := 0
	for _, q := range in.quotas {
		total += q
	}
	return total
}

// SelectSquad picks the value-maximizing squad from scored under the request
// rules. It never returns a partial squad: on failure the squad is nil.
func SelectSquad(ctx context.Context, scored []ScoredPlayer, req SelectionRequest) (*Squad, error) {
	if err := req.Rules.Validate(); err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = SolverExact
	}
	if err := ctx.Err(); err != nil {
		return nil, timeoutError(err)
	}

	in, locked, err := prepareSelection(scored, &req)
	if err != nil {
		return nil, err
	}

	var (
		picks []ScoredPlayer
		nodes int64
	)
	switch req.Mode {
	case SolverExact:
		picks, nodes, err = solveExact(ctx, in)
	case SolverGreedy:
		picks, err = solveGreedy(in)
	default:
		return nil, fmt.Errorf("unknown solver mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	players := make([]ScoredPlayer, 0, req.Rules.SquadSize)
	players = append(players, locked...)
	players = append(players, picks...)
	sortBySquadOrder(players)

	if err := req.Rules.ValidateSquad(players); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasibleSquad, err)
	}

	return &Squad{
		Players:       players,
		TotalValue:    totalValue(players),
		TotalPrice:    totalPrice(players),
		Budget:        req.Rules.Budget,
		Mode:          req.Mode,
		Approximate:   req.Mode == SolverGreedy,
		NodesExplored: nodes,
	}, nil
}

// prepareSelection commits locked players and filters the remaining pool.
func prepareSelection(scored []ScoredPlayer, req *SelectionRequest) (*solverInput, []ScoredPlayer, error) {
	byID := make(map[int]*ScoredPlayer, len(scored))
	for i := range scored {
		byID[scored[i].ID] = &scored[i]
	}

	excluded := make(map[int]bool, len(req.Excluded))
	for _, id := range req.Excluded {
		excluded[id] = true
	}

	in := &solverInput{
		quotas:     copyQuotas(req.Rules.Quotas),
		budget:     int(req.Rules.Budget),
		clubCounts: make(map[int]int),
		maxPerClub: req.Rules.MaxPerClub,
		squadSize:  req.Rules.SquadSize,
	}
	if in.budget < 0 {
		return nil, nil, fmt.Errorf("%w: negative budget %s", ErrInfeasibleSquad, req.Rules.Budget)
	}

	lockedSet := make(map[int]bool, len(req.Locked))
	locked := make([]ScoredPlayer, 0, len(req.Locked))
	for _, id := range req.Locked {
		if lockedSet[id] {
			continue
		}
		p, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: locked player %d", ErrUnknownPlayer, id)
		}
		if excluded[id] {
			return nil, nil, fmt.Errorf("%w: player %d is both locked and excluded", ErrInfeasibleSquad, id)
		}
		lockedSet[id] = true

		in.quotas[p.Position]--
		if in.quotas[p.Position] < 0 {
			return nil, nil, fmt.Errorf("%w: too many locked %s players", ErrInfeasibleSquad, p.Position)
		}
		in.clubCounts[p.ClubID]++
		if in.clubCounts[p.ClubID] > in.maxPerClub {
			return nil, nil, fmt.Errorf("%w: locked players exceed %d from club %d", ErrInfeasibleSquad, in.maxPerClub, p.ClubID)
		}
		in.budget -= int(p.Price)
		if in.budget < 0 {
			return nil, nil, fmt.Errorf("%w: locked players cost more than the budget", ErrInfeasibleSquad)
		}
		locked = append(locked, *p)
	}

	in.candidates = make([]ScoredPlayer, 0, len(scored))
	for i := range scored {
		p := &scored[i]
		if lockedSet[p.ID] || excluded[p.ID] || !req.eligible(p) {
			continue
		}
		in.candidates = append(in.candidates, *p)
	}
	return in, locked, nil
}

func timeoutError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
