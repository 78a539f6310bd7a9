package optimizer

import (
	"fmt"
	"sort"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

const (
	hitCost           = 4
	expectedGameweeks = 5
	worthHitValueGain = 0.4
	noTransfersAdvice = "No beneficial transfers found."
)

// TransferOptions bound a transfer search.
type TransferOptions struct {
	MaxTransfers  int
	Bank          models.Price
	FreeTransfers int
	Rules         SquadRules
}

// Transfer is one same-position swap.
type Transfer struct {
	Out ScoredPlayer `json:"out"`
	In  ScoredPlayer `json:"in"`
	// Gain is the value difference, in minus out.
	Gain float64 `json:"gain"`
	// BudgetDelta is the price difference, in minus out.
	BudgetDelta        models.Price `json:"budget_delta"`
	IsFree             bool         `json:"is_free"`
	PointsCost         int          `json:"points_cost"`
	ExpectedPointsGain float64      `json:"expected_points_gain"`
	NetBenefit         float64      `json:"net_benefit"`
	IsWorthHit         bool         `json:"is_worth_hit"`
}

// TransferPlan is the ordered list of accepted swaps with its totals.
type TransferPlan struct {
	Transfers          []Transfer   `json:"transfers"`
	TotalGain          float64      `json:"total_gain"`
	NetBudgetDelta     models.Price `json:"net_budget_delta"`
	RemainingBank      models.Price `json:"remaining_bank"`
	FreeTransfersUsed  int          `json:"free_transfers_used"`
	HitsTaken          int          `json:"hits_taken"`
	PointsCost         int          `json:"points_cost"`
	ExpectedPointsGain float64      `json:"expected_points_gain"`
	NetBenefit         float64      `json:"net_benefit"`
	ValueBefore        float64      `json:"value_before"`
	ValueAfter         float64      `json:"value_after"`
	Recommendation     string       `json:"recommendation"`
}

// PlanTransfers proposes up to opts.MaxTransfers swaps from current towards
// candidates. Candidates already in current are ignored. An empty plan means
// nothing improves the squad within the limits.
func PlanTransfers(current, candidates []ScoredPlayer, opts TransferOptions) (*TransferPlan, error) {
	if opts.MaxTransfers < 0 {
		return nil, fmt.Errorf("%w: negative transfer limit %d", ErrNoFeasibleTransfer, opts.MaxTransfers)
	}

	if opts.MaxTransfers == 0 {
		if opts.Bank < 0 {
			return nil, fmt.Errorf("%w: bank is %s", ErrInsufficientBudget, opts.Bank)
		}
		if err := opts.Rules.validateComposition(current); err != nil {
			return nil, fmt.Errorf("%w: current squad is invalid and no transfers are allowed: %v", ErrNoFeasibleTransfer, err)
		}
		return finishPlan(current, nil, opts), nil
	}

	swaps := candidateSwaps(current, candidates)
	accepted := acceptSwaps(current, swaps, opts)

	// Back off the last accepted swap until the resulting squad holds.
	for {
		if err := verifyPlan(current, accepted, opts); err == nil {
			break
		}
		if len(accepted) == 0 {
			break
		}
		accepted = accepted[:len(accepted)-1]
	}

	return finishPlan(current, accepted, opts), nil
}

// candidateSwaps lists every improving swap, best gain first. Affordability
// depends on what else is accepted, so it is left to acceptSwaps.
func candidateSwaps(current, candidates []ScoredPlayer) []Transfer {
	owned := make(map[int]bool, len(current))
	for i := range current {
		owned[current[i].ID] = true
	}

	var swaps []Transfer
	for i := range current {
		out := &current[i]
		for j := range candidates {
			in := &candidates[j]
			if owned[in.ID] || in.Position != out.Position {
				continue
			}
			gain := in.Value - out.Value
			delta := in.Price - out.Price
			if gain <= valueEps {
				continue
			}
			swaps = append(swaps, Transfer{Out: *out, In: *in, Gain: gain, BudgetDelta: delta})
		}
	}

	sort.SliceStable(swaps, func(a, b int) bool {
		sa, sb := &swaps[a], &swaps[b]
		if sa.Gain != sb.Gain {
			return sa.Gain > sb.Gain
		}
		if sa.BudgetDelta != sb.BudgetDelta {
			return sa.BudgetDelta < sb.BudgetDelta
		}
		if sa.Out.ID != sb.Out.ID {
			return sa.Out.ID < sb.Out.ID
		}
		return sa.In.ID < sb.In.ID
	})
	return swaps
}

// acceptSwaps greedily takes non-conflicting swaps while the running bank
// and the club cap allow. Swaps skipped for lack of funds are retried on a
// later pass once cheaper swaps have freed money.
func acceptSwaps(current []ScoredPlayer, swaps []Transfer, opts TransferOptions) []Transfer {
	clubs := make(map[int]int)
	for i := range current {
		clubs[current[i].ClubID]++
	}
	used := make(map[int]bool)
	bank := opts.Bank

	var accepted []Transfer
	for progress := true; progress && len(accepted) < opts.MaxTransfers; {
		progress = false
		for _, s := range swaps {
			if len(accepted) == opts.MaxTransfers {
				break
			}
			if used[s.Out.ID] || used[s.In.ID] || s.BudgetDelta > bank {
				continue
			}
			if s.In.ClubID != s.Out.ClubID && clubs[s.In.ClubID]+1 > opts.Rules.MaxPerClub {
				continue
			}
			used[s.Out.ID], used[s.In.ID] = true, true
			clubs[s.Out.ClubID]--
			clubs[s.In.ClubID]++
			bank -= s.BudgetDelta
			accepted = append(accepted, s)
			progress = true
		}
	}
	return accepted
}

func applySwaps(current []ScoredPlayer, swaps []Transfer) []ScoredPlayer {
	replace := make(map[int]ScoredPlayer, len(swaps))
	for _, s := range swaps {
		replace[s.Out.ID] = s.In
	}
	result := make([]ScoredPlayer, len(current))
	for i := range current {
		if in, ok := replace[current[i].ID]; ok {
			result[i] = in
		} else {
			result[i] = current[i]
		}
	}
	return result
}

func verifyPlan(current []ScoredPlayer, swaps []Transfer, opts TransferOptions) error {
	bank := opts.Bank
	for _, s := range swaps {
		bank -= s.BudgetDelta
	}
	if bank < 0 {
		return fmt.Errorf("%w: plan leaves bank at %s", ErrInsufficientBudget, bank)
	}
	return opts.Rules.validateComposition(applySwaps(current, swaps))
}

func finishPlan(current []ScoredPlayer, swaps []Transfer, opts TransferOptions) *TransferPlan {
	plan := &TransferPlan{
		Transfers:     make([]Transfer, 0, len(swaps)),
		RemainingBank: opts.Bank,
		ValueBefore:   totalValue(current),
	}

	for i, s := range swaps {
		s.IsFree = i < opts.FreeTransfers
		if !s.IsFree {
			s.PointsCost = hitCost
		}
		s.ExpectedPointsGain = (pointsPerGame(&s.In) - pointsPerGame(&s.Out)) * expectedGameweeks
		s.NetBenefit = s.ExpectedPointsGain - float64(s.PointsCost)
		s.IsWorthHit = s.IsFree || s.Gain >= worthHitValueGain

		plan.Transfers = append(plan.Transfers, s)
		plan.TotalGain += s.Gain
		plan.NetBudgetDelta += s.BudgetDelta
		plan.PointsCost += s.PointsCost
		plan.ExpectedPointsGain += s.ExpectedPointsGain
		if s.IsFree {
			plan.FreeTransfersUsed++
		} else {
			plan.HitsTaken++
		}
	}

	plan.RemainingBank = opts.Bank - plan.NetBudgetDelta
	plan.NetBenefit = plan.ExpectedPointsGain - float64(plan.PointsCost)
	plan.ValueAfter = plan.ValueBefore + plan.TotalGain
	plan.Recommendation = recommendation(len(plan.Transfers), plan.NetBenefit)
	return plan
}

func pointsPerGame(p *ScoredPlayer) float64 {
	if p.Stats.PointsPerGame == nil {
		return 0
	}
	return *p.Stats.PointsPerGame
}

func recommendation(transfers int, netBenefit float64) string {
	switch {
	case transfers == 0:
		return noTransfersAdvice
	case netBenefit > 10:
		return "Strong recommendation: these transfers should significantly improve your team."
	case netBenefit > 5:
		return "Good recommendation: these transfers should provide a decent improvement."
	case netBenefit > 0:
		return "Moderate recommendation: small improvement expected."
	case netBenefit > -5:
		return "Consider carefully: marginal benefit, may not be worth the points hit."
	default:
		return "Not recommended: the points hit outweighs the expected benefit."
	}
}
