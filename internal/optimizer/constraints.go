package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// SquadRules holds the composition rules a squad must satisfy.
type SquadRules struct {
	SquadSize  int
	Quotas     map[models.Position]int
	Budget     models.Price
	MaxPerClub int
}

// DefaultSquadRules returns the standard FPL ruleset: 2 GKP, 5 DEF, 5 MID,
// 3 FWD, 100.0m budget and at most 3 players per club.
func DefaultSquadRules() SquadRules {
	return SquadRules{
		SquadSize: 15,
		Quotas: map[models.Position]int{
			models.Goalkeeper: 2,
			models.Defender:   5,
			models.Midfielder: 5,
			models.Forward:    3,
		},
		Budget:     1000,
		MaxPerClub: 3,
	}
}

// WithBudget returns a copy of the rules with a different budget.
func (r SquadRules) WithBudget(budget models.Price) SquadRules {
	r.Quotas = copyQuotas(r.Quotas)
	r.Budget = budget
	return r
}

func copyQuotas(q map[models.Position]int) map[models.Position]int {
	out := make(map[models.Position]int, len(q))
	for p, n := range q {
		out[p] = n
	}
	return out
}

// Validate checks that the rules themselves are consistent.
func (r SquadRules) Validate() error {
	total := 0
	for _, p := range models.Positions {
		if r.Quotas[p] < 0 {
			return fmt.Errorf("%w: negative quota for %s", ErrConstraintViolation, p)
		}
		total += r.Quotas[p]
	}
	if total != r.SquadSize {
		return fmt.Errorf("%w: quotas add up to %d, squad size is %d", ErrConstraintViolation, total, r.SquadSize)
	}
	if r.MaxPerClub <= 0 {
		return fmt.Errorf("%w: club cap must be positive", ErrConstraintViolation)
	}
	return nil
}

// ValidateSquad checks size, quotas, duplicates, club cap and budget.
func (r SquadRules) ValidateSquad(players []ScoredPlayer) error {
	if err := r.validateComposition(players); err != nil {
		return err
	}
	if total := totalPrice(players); total > r.Budget {
		return fmt.Errorf("%w: squad costs %s, budget is %s", ErrConstraintViolation, total, r.Budget)
	}
	return nil
}

func (r SquadRules) validateComposition(players []ScoredPlayer) error {
	if len(players) != r.SquadSize {
		return fmt.Errorf("%w: squad has %d players, want %d", ErrConstraintViolation, len(players), r.SquadSize)
	}

	seen := make(map[int]bool, len(players))
	positions := make(map[models.Position]int)
	clubs := make(map[int]int)
	for i := range players {
		p := &players[i]
		if seen[p.ID] {
			return fmt.Errorf("%w: player %d appears twice", ErrConstraintViolation, p.ID)
		}
		seen[p.ID] = true
		positions[p.Position]++
		clubs[p.ClubID]++
		if clubs[p.ClubID] > r.MaxPerClub {
			return fmt.Errorf("%w: more than %d players from club %d", ErrConstraintViolation, r.MaxPerClub, p.ClubID)
		}
	}

	for _, pos := range models.Positions {
		if positions[pos] != r.Quotas[pos] {
			return fmt.Errorf("%w: %d %s, want %d", ErrConstraintViolation, positions[pos], pos, r.Quotas[pos])
		}
	}
	return nil
}

func totalPrice(players []ScoredPlayer) models.Price {
	var total models.Price
	for i := range players {
		total += players[i].Price
	}
	return total
}

func totalValue(players []ScoredPlayer) float64 {
	var total float64
	for i := range players {
		total += players[i].Value
	}
	return total
}

// Formation is the outfield shape of a starting eleven; the goalkeeper is
// implied.
type Formation struct {
	Defenders   int `json:"defenders"`
	Midfielders int `json:"midfielders"`
	Forwards    int `json:"forwards"`
}

const (
	startersCount = 11
	minDefenders  = 3
	maxDefenders  = 5
	minMids       = 2
	maxMids       = 5
	minForwards   = 1
	maxForwards   = 3
)

// NamedFormations are the formations accepted by LineupForFormation.
var NamedFormations = []string{"3-4-3", "3-5-2", "4-3-3", "4-4-2", "4-5-1", "5-3-2", "5-4-1"}

func (f Formation) String() string {
	return fmt.Sprintf("%d-%d-%d", f.Defenders, f.Midfielders, f.Forwards)
}

func (f Formation) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts any valid formation, named or not.
func (f *Formation) UnmarshalText(text []byte) error {
	var parsed Formation
	if _, err := fmt.Sscanf(string(text), "%d-%d-%d", &parsed.Defenders, &parsed.Midfielders, &parsed.Forwards); err != nil || !parsed.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFormation, text)
	}
	*f = parsed
	return nil
}

// Valid reports whether the formation respects the outfield bounds.
func (f Formation) Valid() bool {
	return f.Defenders >= minDefenders && f.Defenders <= maxDefenders &&
		f.Midfielders >= minMids && f.Midfielders <= maxMids &&
		f.Forwards >= minForwards && f.Forwards <= maxForwards &&
		1+f.Defenders+f.Midfielders+f.Forwards == startersCount
}

func (f Formation) count(p models.Position) int {
	switch p {
	case models.Goalkeeper:
		return 1
	case models.Defender:
		return f.Defenders
	case models.Midfielder:
		return f.Midfielders
	case models.Forward:
		return f.Forwards
	}
	return 0
}

// ValidFormations enumerates every legal formation ordered by defenders,
// then midfielders.
func ValidFormations() []Formation {
	var out []Formation
	for d := minDefenders; d <= maxDefenders; d++ {
		for m := minMids; m <= maxMids; m++ {
			f := Formation{Defenders: d, Midfielders: m, Forwards: startersCount - 1 - d - m}
			if f.Valid() {
				out = append(out, f)
			}
		}
	}
	return out
}

// ParseFormation accepts one of NamedFormations, e.g. "4-4-2".
func ParseFormation(s string) (Formation, error) {
	name := strings.TrimSpace(s)
	named := false
	for _, n := range NamedFormations {
		if n == name {
			named = true
			break
		}
	}
	if !named {
		return Formation{}, fmt.Errorf("%w: %q", ErrInvalidFormation, s)
	}

	parts := strings.Split(name, "-")
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Formation{}, fmt.Errorf("%w: %q", ErrInvalidFormation, s)
		}
		nums[i] = n
	}
	return Formation{Defenders: nums[0], Midfielders: nums[1], Forwards: nums[2]}, nil
}
