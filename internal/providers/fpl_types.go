package providers

import (
	"strconv"
	"strings"
	"time"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// FPL API response structures
type BootstrapResponse struct {
	Elements []ElementResponse `json:"elements"`
	Teams    []TeamResponse    `json:"teams"`
	Events   []EventResponse   `json:"events"`
}

type ElementResponse struct {
	ID                       int    `json:"id"`
	WebName                  string `json:"web_name"`
	FirstName                string `json:"first_name"`
	SecondName               string `json:"second_name"`
	Team                     int    `json:"team"`
	ElementType              int    `json:"element_type"`
	NowCost                  int    `json:"now_cost"`
	Status                   string `json:"status"`
	ChanceOfPlayingNextRound *int   `json:"chance_of_playing_next_round"`
	Form                     string `json:"form"`
	TotalPoints              int    `json:"total_points"`
	PointsPerGame            string `json:"points_per_game"`
	ExpectedGoals            string `json:"expected_goals"`
	ExpectedAssists          string `json:"expected_assists"`
	CleanSheets              int    `json:"clean_sheets"`
	SelectedByPercent        string `json:"selected_by_percent"`
	Minutes                  int    `json:"minutes"`
	TransfersInEvent         int    `json:"transfers_in_event"`
	TransfersOutEvent        int    `json:"transfers_out_event"`
	DefensiveContribution    *int   `json:"defensive_contribution"`
	Tackles                  *int   `json:"tackles"`
	ClearancesBlocksInts     *int   `json:"clearances_blocks_interceptions"`
	Recoveries               *int   `json:"recoveries"`
}

type TeamResponse struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type EventResponse struct {
	ID        int  `json:"id"`
	IsCurrent bool `json:"is_current"`
	IsNext    bool `json:"is_next"`
	Finished  bool `json:"finished"`
}

type FixtureResponse struct {
	ID              int     `json:"id"`
	Event           *int    `json:"event"`
	TeamH           int     `json:"team_h"`
	TeamA           int     `json:"team_a"`
	TeamHDifficulty int     `json:"team_h_difficulty"`
	TeamADifficulty int     `json:"team_a_difficulty"`
	Finished        bool    `json:"finished"`
	KickoffTime     *string `json:"kickoff_time"`
}

type EntryResponse struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	PlayerFirstName  string `json:"player_first_name"`
	PlayerLastName   string `json:"player_last_name"`
	CurrentEvent     *int   `json:"current_event"`
	LastDeadlineBank *int   `json:"last_deadline_bank"`
}

type PicksResponse struct {
	ActiveChip   *string              `json:"active_chip"`
	EntryHistory EntryHistoryResponse `json:"entry_history"`
	Picks        []PickResponse       `json:"picks"`
}

type EntryHistoryResponse struct {
	Event              int `json:"event"`
	Bank               int `json:"bank"`
	Value              int `json:"value"`
	EventTransfers     int `json:"event_transfers"`
	EventTransfersCost int `json:"event_transfers_cost"`
}

type PickResponse struct {
	Element       int  `json:"element"`
	Position      int  `json:"position"`
	Multiplier    int  `json:"multiplier"`
	IsCaptain     bool `json:"is_captain"`
	IsViceCaptain bool `json:"is_vice_captain"`
}

// CurrentGameweek is the event flagged current, else the first flagged
// next, else 1.
func (b *BootstrapResponse) CurrentGameweek() int {
	next := 0
	for _, e := range b.Events {
		if e.IsCurrent {
			return e.ID
		}
		if e.IsNext && next == 0 {
			next = e.ID
		}
	}
	if next > 0 {
		return next
	}
	return 1
}

func (b *BootstrapResponse) Clubs() []models.Club {
	clubs := make([]models.Club, 0, len(b.Teams))
	for _, t := range b.Teams {
		clubs = append(clubs, models.Club{ID: t.ID, Name: t.Name, ShortName: t.ShortName})
	}
	return clubs
}

func (b *BootstrapResponse) Gameweeks() []models.Gameweek {
	out := make([]models.Gameweek, 0, len(b.Events))
	for _, e := range b.Events {
		out = append(out, models.Gameweek{ID: e.ID, IsCurrent: e.IsCurrent, IsNext: e.IsNext, Finished: e.Finished})
	}
	return out
}

// Players maps every element with a playing position. Elements of other
// types (such as managers) are skipped and counted.
func (b *BootstrapResponse) Players() (players []models.Player, skipped int) {
	clubNames := make(map[int]string, len(b.Teams))
	for _, t := range b.Teams {
		clubNames[t.ID] = t.ShortName
	}

	players = make([]models.Player, 0, len(b.Elements))
	for i := range b.Elements {
		e := &b.Elements[i]
		pos, err := models.PositionFromElementType(e.ElementType)
		if err != nil {
			skipped++
			continue
		}
		players = append(players, models.Player{
			ID:              e.ID,
			Name:            e.WebName,
			ClubID:          e.Team,
			Club:            clubNames[e.Team],
			Position:        pos,
			Price:           models.Price(e.NowCost),
			Status:          e.Status,
			ChanceOfPlaying: e.ChanceOfPlayingNextRound,
			Stats: models.PlayerStats{
				Form:              parseDecimal(e.Form),
				TotalPoints:       models.Float(float64(e.TotalPoints)),
				PointsPerGame:     parseDecimal(e.PointsPerGame),
				ExpectedGoals:     parseDecimal(e.ExpectedGoals),
				ExpectedAssists:   parseDecimal(e.ExpectedAssists),
				DefensiveActions:  e.defensiveActions(),
				CleanSheets:       models.Float(float64(e.CleanSheets)),
				Ownership:         parseDecimal(e.SelectedByPercent),
				Minutes:           e.Minutes,
				TransfersInEvent:  e.TransfersInEvent,
				TransfersOutEvent: e.TransfersOutEvent,
			},
		})
	}
	return players, skipped
}

// defensiveActions prefers the published defensive contribution and falls
// back to the sum of the individual defensive counts that are present.
func (e *ElementResponse) defensiveActions() *float64 {
	if e.DefensiveContribution != nil {
		return models.Float(float64(*e.DefensiveContribution))
	}
	var (
		total float64
		found bool
	)
	for _, v := range []*int{e.Tackles, e.ClearancesBlocksInts, e.Recoveries} {
		if v != nil {
			total += float64(*v)
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}

func (f *FixtureResponse) Fixture() models.Fixture {
	fx := models.Fixture{
		ID:             f.ID,
		Gameweek:       f.Event,
		HomeClubID:     f.TeamH,
		AwayClubID:     f.TeamA,
		HomeDifficulty: f.TeamHDifficulty,
		AwayDifficulty: f.TeamADifficulty,
		Finished:       f.Finished,
	}
	if f.KickoffTime != nil {
		if t, err := time.Parse(time.RFC3339, *f.KickoffTime); err == nil {
			fx.KickoffTime = &t
		}
	}
	return fx
}

// Fixtures maps a fixtures response.
func Fixtures(resp []FixtureResponse) []models.Fixture {
	out := make([]models.Fixture, 0, len(resp))
	for i := range resp {
		out = append(out, resp[i].Fixture())
	}
	return out
}

// parseDecimal reads FPL's string-encoded decimals; blanks are missing.
func parseDecimal(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
