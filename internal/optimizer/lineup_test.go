package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

func countByPosition(players []ScoredPlayer) map[models.Position]int {
	counts := make(map[models.Position]int)
	for _, p := range players {
		counts[p.Position]++
	}
	return counts
}

func TestBestLineup_Properties(t *testing.T) {
	engine := newTestEngine(t, nil)
	result, err := engine.OptimizeSquad(context.Background(), largePool(), OptimizeRequest{Strategy: "balanced"})
	require.NoError(t, err)

	lineup := result.Lineup
	require.Len(t, lineup.Starters, 11)
	require.Len(t, lineup.Bench, 4)
	assert.True(t, lineup.Formation.Valid())

	squadIDs := result.Squad.PlayerIDs()
	var captain ScoredPlayer
	for _, p := range lineup.Starters {
		assert.Contains(t, squadIDs, p.ID)
		if p.ID == lineup.CaptainID {
			captain = p
		}
	}
	for _, p := range lineup.Starters {
		assert.GreaterOrEqual(t, captain.Value, p.Value)
	}
	assert.NotEqual(t, lineup.CaptainID, lineup.ViceCaptainID)

	counts := countByPosition(lineup.Starters)
	assert.Equal(t, 1, counts[models.Goalkeeper])
	assert.Equal(t, lineup.Formation.Defenders, counts[models.Defender])
	assert.Equal(t, lineup.Formation.Midfielders, counts[models.Midfielder])
	assert.Equal(t, lineup.Formation.Forwards, counts[models.Forward])

	assert.Equal(t, models.Goalkeeper, lineup.Bench[0].Position)
	for i := 2; i < len(lineup.Bench); i++ {
		assert.GreaterOrEqual(t, lineup.Bench[i-1].Value, lineup.Bench[i].Value)
	}
	assert.InDelta(t, lineup.StartingValue+captain.Value, lineup.ProjectedValue, 1e-9)
	assert.Equal(t, 2, lineup.CaptainMultiplier)
}

func TestBestLineup_PicksStrongestShape(t *testing.T) {
	squad := validSquad()
	// Make every defender outscore every midfielder and forward.
	for i := range squad {
		if squad[i].Position == models.Defender {
			squad[i].Value = 8
		}
	}

	lineup, err := BestLineup(squad)
	require.NoError(t, err)
	// All five-at-the-back shapes tie; the first enumerated one wins.
	assert.Equal(t, 5, lineup.Formation.Defenders)
	assert.Equal(t, "5-2-3", lineup.Formation.String())
}

func TestBestLineup_TieKeepsFirstFormation(t *testing.T) {
	lineup, err := BestLineup(validSquad())
	require.NoError(t, err)
	assert.Equal(t, ValidFormations()[0], lineup.Formation)
	assert.Equal(t, 1, lineup.CaptainID)
	assert.Equal(t, 3, lineup.ViceCaptainID)
}

func TestLineupForFormation(t *testing.T) {
	lineup, err := LineupForFormation(validSquad(), "4-4-2")
	require.NoError(t, err)

	counts := countByPosition(lineup.Starters)
	assert.Equal(t, 4, counts[models.Defender])
	assert.Equal(t, 4, counts[models.Midfielder])
	assert.Equal(t, 2, counts[models.Forward])

	for _, name := range []string{"2-5-3", "5-2-3", "4-4-3", "", "four-four-two"} {
		_, err := LineupForFormation(validSquad(), name)
		assert.ErrorIs(t, err, ErrInvalidFormation, name)
	}
}

func TestValidFormations(t *testing.T) {
	formations := ValidFormations()
	assert.Len(t, formations, 8)
	for _, f := range formations {
		assert.True(t, f.Valid(), f.String())
	}
	for _, name := range NamedFormations {
		f, err := ParseFormation(name)
		require.NoError(t, err)
		assert.True(t, f.Valid(), name)
	}
}

func TestBestLineup_TooFewPlayers(t *testing.T) {
	_, err := BestLineup(validSquad()[:10])
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestFormationText(t *testing.T) {
	var f Formation
	require.NoError(t, f.UnmarshalText([]byte("5-2-3")))
	assert.Equal(t, Formation{Defenders: 5, Midfielders: 2, Forwards: 3}, f)

	text, err := f.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5-2-3", string(text))

	assert.ErrorIs(t, f.UnmarshalText([]byte("6-3-1")), ErrInvalidFormation)
	assert.ErrorIs(t, f.UnmarshalText([]byte("four")), ErrInvalidFormation)
}
