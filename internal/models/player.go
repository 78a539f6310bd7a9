package models

import (
	"fmt"
	"math"
	"strings"
)

// Position is one of the four FPL playing positions.
type Position int

const (
	Goalkeeper Position = iota + 1
	Defender
	Midfielder
	Forward
)

// Positions lists every position in squad order.
var Positions = []Position{Goalkeeper, Defender, Midfielder, Forward}

func (p Position) String() string {
	switch p {
	case Goalkeeper:
		return "GKP"
	case Defender:
		return "DEF"
	case Midfielder:
		return "MID"
	case Forward:
		return "FWD"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

func (p Position) Valid() bool {
	return p >= Goalkeeper && p <= Forward
}

func (p Position) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid position %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PositionFromElementType maps the FPL element_type field (1..4).
func PositionFromElementType(elementType int) (Position, error) {
	p := Position(elementType)
	if !p.Valid() {
		return 0, fmt.Errorf("unknown element type %d", elementType)
	}
	return p, nil
}

// ParsePosition accepts short codes, full names and element type digits.
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GKP", "GK", "GOALKEEPER", "1":
		return Goalkeeper, nil
	case "DEF", "DEFENDER", "2":
		return Defender, nil
	case "MID", "MIDFIELDER", "3":
		return Midfielder, nil
	case "FWD", "FW", "FORWARD", "4":
		return Forward, nil
	}
	return 0, fmt.Errorf("unknown position %q", s)
}

// Price is a fixed-point amount in tenths of a million (FPL now_cost).
type Price int

func PriceFromMillions(m float64) Price {
	return Price(math.Round(m * 10))
}

func (p Price) Millions() float64 {
	return float64(p) / 10
}

func (p Price) String() string {
	return fmt.Sprintf("%.1f", p.Millions())
}

// PlayerStats holds the raw per-player statistics. Nil pointers mean the
// value is unavailable for that player.
type PlayerStats struct {
	Form              *float64 `json:"form,omitempty"`
	TotalPoints       *float64 `json:"total_points,omitempty"`
	PointsPerGame     *float64 `json:"points_per_game,omitempty"`
	ExpectedGoals     *float64 `json:"expected_goals,omitempty"`
	ExpectedAssists   *float64 `json:"expected_assists,omitempty"`
	DefensiveActions  *float64 `json:"defensive_actions,omitempty"`
	CleanSheets       *float64 `json:"clean_sheets,omitempty"`
	Ownership         *float64 `json:"ownership,omitempty"`
	Minutes           int      `json:"minutes"`
	TransfersInEvent  int      `json:"transfers_in_event"`
	TransfersOutEvent int      `json:"transfers_out_event"`
}

// Player is a single entry of the player pool. Players are shared read-only
// between optimization runs.
type Player struct {
	ID                 int         `json:"id"`
	Name               string      `json:"name"`
	ClubID             int         `json:"club_id"`
	Club               string      `json:"club"`
	Position           Position    `json:"position"`
	Price              Price       `json:"price"`
	Status             string      `json:"status"`
	ChanceOfPlaying    *int        `json:"chance_of_playing,omitempty"`
	Stats              PlayerStats `json:"stats"`
	UpcomingDifficulty []float64   `json:"upcoming_difficulty,omitempty"`
}

// Available reports whether the player is flagged as available and, when a
// chance of playing is published, whether it reaches minChance.
func (p *Player) Available(minChance int) bool {
	if p.Status != "" && p.Status != "a" {
		return false
	}
	if p.ChanceOfPlaying != nil && *p.ChanceOfPlaying < minChance {
		return false
	}
	return true
}

// MeanDifficulty averages the upcoming fixture difficulty sequence. ok is
// false when no fixtures are known.
func (p *Player) MeanDifficulty() (mean float64, ok bool) {
	if len(p.UpcomingDifficulty) == 0 {
		return 0, false
	}
	var sum float64
	for _, d := range p.UpcomingDifficulty {
		sum += d
	}
	return sum / float64(len(p.UpcomingDifficulty)), true
}

// Float returns a pointer to v, handy for building PlayerStats.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
