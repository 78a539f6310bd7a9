package models

import "time"

// Fixture is one scheduled match between two clubs.
type Fixture struct {
	ID             int        `json:"id"`
	Gameweek       *int       `json:"gameweek"`
	HomeClubID     int        `json:"home_club_id"`
	AwayClubID     int        `json:"away_club_id"`
	HomeDifficulty int        `json:"home_difficulty"`
	AwayDifficulty int        `json:"away_difficulty"`
	Finished       bool       `json:"finished"`
	KickoffTime    *time.Time `json:"kickoff_time,omitempty"`
}

// Gameweek is one FPL event.
type Gameweek struct {
	ID        int  `json:"id"`
	IsCurrent bool `json:"is_current"`
	IsNext    bool `json:"is_next"`
	Finished  bool `json:"finished"`
}

// Club is a Premier League team.
type Club struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// ClubDifficulty is the per-gameweek difficulty of one club over the horizon.
// Blank gameweeks are absent from ByGameweek.
type ClubDifficulty struct {
	ClubID     int             `json:"club_id"`
	ByGameweek map[int]float64 `json:"by_gameweek"`
	Sequence   []float64       `json:"sequence"`
	Average    *float64        `json:"average,omitempty"`
}

// FixtureDifficulty maps club id to its difficulty over the horizon.
type FixtureDifficulty map[int]ClubDifficulty

// EntrySquad is a manager's current squad as published by FPL.
type EntrySquad struct {
	EntryID       int    `json:"entry_id"`
	ManagerName   string `json:"manager_name,omitempty"`
	TeamName      string `json:"team_name,omitempty"`
	Gameweek      int    `json:"gameweek"`
	PlayerIDs     []int  `json:"player_ids"`
	Bank          Price  `json:"bank"`
	CaptainID     int    `json:"captain_id,omitempty"`
	ViceCaptainID int    `json:"vice_captain_id,omitempty"`
}
